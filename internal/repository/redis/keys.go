package redisrepo

import "fmt"

const ns = "partyrsvp:v1"

func KeySession(id string) string {
	return fmt.Sprintf("%s:session:%s", ns, id)
}

// KeySeatAvailability caches availability as seen by excludeID; 0 is the
// global view.
func KeySeatAvailability(excludeID int64) string {
	return fmt.Sprintf("%s:seats:%d", ns, excludeID)
}

func KeySeatAvailabilityPattern() string {
	return ns + ":seats:*"
}

func KeyIdemSubmit(sessionID, idemKey string) string {
	return fmt.Sprintf("%s:idem:submit:%s:%s", ns, sessionID, idemKey)
}

// KeySubmitLock serializes submits of one wizard session.
func KeySubmitLock(sessionID string) string {
	return fmt.Sprintf("%s:lock:submit:%s", ns, sessionID)
}

func KeyRateLimitPrefix(scope string) string {
	return fmt.Sprintf("%s:rl:%s", ns, scope)
}

func ChannelConfirmationsChanged() string {
	return ns + ":confirmations:changed"
}
