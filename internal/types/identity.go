package types

import (
	"fmt"
	"strings"
)

// StageIdentity is the stable cache key of one stage invocation: the stage name plus a
// fingerprint of everything the stage consumes
type StageIdentity struct {
	Stage       string `json:"stage"`
	Fingerprint string `json:"fingerprint"`
}

// Key returns the store key for the identity, laid out as <stage>/<fingerprint>
func (id StageIdentity) Key() string {
	return id.Stage + "/" + id.Fingerprint
}

// Short returns the stage name with an abbreviated fingerprint, for log lines
func (id StageIdentity) Short() string {
	fp := id.Fingerprint
	if len(fp) > 12 {
		fp = fp[:12]
	}
	return id.Stage + "@" + fp
}

// IsZero reports whether the identity is unset
func (id StageIdentity) IsZero() bool {
	return id.Stage == "" && id.Fingerprint == ""
}

// ParseStageIdentity splits a store key back into an identity
func ParseStageIdentity(key string) (StageIdentity, error) {
	stage, fp, ok := strings.Cut(key, "/")
	if !ok || stage == "" || fp == "" {
		return StageIdentity{}, fmt.Errorf("invalid stage identity key: %q", key)
	}
	return StageIdentity{Stage: stage, Fingerprint: fp}, nil
}
