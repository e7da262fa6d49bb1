package redis

import "posterbot/internal/session"

// recordVersion is bumped whenever the stored session layout changes in a
// way older builds cannot read.
const recordVersion = 1

// record is the JSON document kept under a session key.
type record struct {
	Version int              `json:"v"`
	Session *session.Session `json:"session"`
}
