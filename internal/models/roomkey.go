package models

// RoomKey is the symmetric key and IV shared by a room's participants,
// both hex-encoded: 32 random bytes of key, 16 of IV.
type RoomKey struct {
	Key string `db:"key" json:"key"`
	IV  string `db:"iv" json:"iv"`
}
