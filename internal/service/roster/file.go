package roster

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/kirinyoku/party-rsvp/internal/domain"
)

type rosterEntry struct {
	Name       string `yaml:"name"`
	Role       string `yaml:"role"`
	Department string `yaml:"department"`
}

// ReadYAML decodes a roster file: a YAML list of name/role/department.
func ReadYAML(r io.Reader) ([]domain.Employee, error) {
	const op = "service.roster.ReadYAML"

	var entries []rosterEntry
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%s:%w", op, ErrEmptyRoster)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	out := make([]domain.Employee, 0, len(entries))
	for _, e := range entries {
		out = append(out, domain.Employee{Name: e.Name, Role: e.Role, Department: e.Department})
	}
	return out, nil
}
