package model

// RosterEntry is the normalized representation of one person authorized on a
// lock, used while reconciling the authoritative roster against the device.
// Key is the merge key: a codpes for institutional people, offset + id for
// external users.
type RosterEntry struct {
	Key      int    `json:"key"`
	Name     string `json:"name"`
	External bool   `json:"external"`
}
