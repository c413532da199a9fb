package models

import (
	"fmt"
	"strconv"
	"strings"
)

// DistanceBucket discretizes yards-to-go for tendency lookups
type DistanceBucket int

const (
	BucketShort    DistanceBucket = iota // 1-2
	BucketMedium                         // 3-5
	BucketStandard                       // 6-10
	BucketLong                           // 11-15
	BucketVeryLong                       // 16+
)

var AllBuckets = []DistanceBucket{BucketShort, BucketMedium, BucketStandard, BucketLong, BucketVeryLong}

var bucketNames = map[DistanceBucket]string{
	BucketShort:    "short",
	BucketMedium:   "medium",
	BucketStandard: "standard",
	BucketLong:     "long",
	BucketVeryLong: "very_long",
}

func (b DistanceBucket) String() string {
	if name, ok := bucketNames[b]; ok {
		return name
	}
	return fmt.Sprintf("bucket(%d)", int(b))
}

// BucketFor maps yards-to-go onto its bucket
func BucketFor(toGo int) DistanceBucket {
	switch {
	case toGo <= 2:
		return BucketShort
	case toGo <= 5:
		return BucketMedium
	case toGo <= 10:
		return BucketStandard
	case toGo <= 15:
		return BucketLong
	default:
		return BucketVeryLong
	}
}

// ParseBucket converts a bucket name into a DistanceBucket
func ParseBucket(s string) (DistanceBucket, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for b, n := range bucketNames {
		if n == name {
			return b, nil
		}
	}
	return 0, fmt.Errorf("unknown distance bucket %q", s)
}

// SituationKey indexes a tendency table by down and distance bucket
type SituationKey struct {
	Down   int
	Bucket DistanceBucket
}

// KeyFor builds the situation key for a down and distance
func KeyFor(down, toGo int) SituationKey {
	return SituationKey{Down: down, Bucket: BucketFor(toGo)}
}

func (k SituationKey) String() string {
	return fmt.Sprintf("%d:%s", k.Down, k.Bucket)
}

// MarshalText encodes the key as "down:bucket" so it can be a YAML/JSON map key
func (k SituationKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *SituationKey) UnmarshalText(text []byte) error {
	parts := strings.SplitN(string(text), ":", 2)
	if len(parts) != 2 {
		return fmt.Errorf("situation key %q must be down:bucket", string(text))
	}
	down, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || down < 1 || down > 4 {
		return fmt.Errorf("situation key %q has invalid down", string(text))
	}
	bucket, err := ParseBucket(parts[1])
	if err != nil {
		return err
	}
	*k = SituationKey{Down: down, Bucket: bucket}
	return nil
}

// Situation is the read-only context handed to the play caller and sampler
type Situation struct {
	Quarter         int
	Clock           int // seconds left in the period
	Down            int
	ToGo            int
	OwnYardLine     int // distance from the offense's own goal line
	ScoreDiff       int // offense score minus defense score
	Overtime        bool
	GameSecondsLeft int // regulation seconds left; the period clock in overtime
}

// Key returns the tendency bucket key for the situation
func (s Situation) Key() SituationKey {
	return KeyFor(s.Down, s.ToGo)
}

// YardsToEndZone is the distance to the opponent's goal line
func (s Situation) YardsToEndZone() int {
	return 100 - s.OwnYardLine
}
