package kind

import (
	"strconv"
)

// T - which will be externally referenced as kind.T is the event type in the
// nostr protocol.
type T struct {
	K uint16
}

func New[V uint16 | uint32 | int32 | int](k V) (ki *T) { return &T{uint16(k)} }

func (k *T) ToU16() uint16 {
	if k == nil {
		return 0
	}
	return k.K
}

func (k *T) ToI32() int32 {
	if k == nil {
		return 0
	}
	return int32(k.K)
}

func (k *T) Equal(k2 *T) bool { return k.ToU16() == k2.ToU16() }

// Name returns a human readable identifier for the kind.
func (k *T) Name() string {
	if n, ok := Map[k.ToU16()]; ok {
		return n
	}
	return "Unknown"
}

func (k *T) Marshal(dst []byte) (b []byte) { return strconv.AppendUint(dst, uint64(k.ToU16()), 10) }

var (
	// ProfileMetadata is an event type that stores user profile data, pet
	// names, bio, lightning address, etc.
	ProfileMetadata = &T{0}
	// TextNote is a standard short text note of plain text a la twitter
	TextNote = &T{1}
	// RecommendRelay is a deprecated kind for suggesting a relay.
	RecommendRelay = &T{2}
	// FollowList an event containing a list of pubkeys of users that should be
	// shown as follows in a timeline.
	FollowList = &T{3}
)

// Map is the names of the kinds this module knows about.
var Map = map[uint16]string{
	ProfileMetadata.K: "ProfileMetadata",
	TextNote.K:        "TextNote",
	RecommendRelay.K:  "RecommendRelay",
	FollowList.K:      "FollowList",
}
