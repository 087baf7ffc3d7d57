package provisioning

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/pzerone/webvirt-wizard/internal/apperr"
)

const (
	MinCoreCount = 1
	MinMemoryMB  = 512
)

const (
	coreCountMessage = "Core count must be greater than or equal to 1."
	memoryMessage    = "Memory must be greater than or equal to 512 MB."
	durationMessage  = "Duration must be greater than or equal to 0 hours."
	prefixMessage    = "Prefix must be an absolute path without trailing slash."
)

// Draft is the operator's raw, unvalidated input.
type Draft struct {
	CoreCount string `form:"core_count"`
	Memory    string `form:"memory"`
	Duration  string `form:"duration"`
	Prefix    string `form:"prefix"`
}

// Request describes the resources every user in a batch receives.
// DurationHours of 0 means the accounts never expire.
type Request struct {
	CoreCount     int
	MemoryMB      int
	DurationHours float64
	HomePrefix    string
}

// Validate checks the draft field by field and reports only the first
// violation.
func Validate(d Draft) (Request, error) {
	cores, err := strconv.Atoi(strings.TrimSpace(d.CoreCount))
	if err != nil || cores < MinCoreCount {
		return Request{}, apperr.Field(apperr.Validation, "core_count", coreCountMessage)
	}

	memory, err := strconv.Atoi(strings.TrimSpace(d.Memory))
	if err != nil || memory < MinMemoryMB {
		return Request{}, apperr.Field(apperr.Validation, "memory", memoryMessage)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(d.Duration), 64)
	if err != nil || duration < 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return Request{}, apperr.Field(apperr.Validation, "duration", durationMessage)
	}

	if !ValidPrefix(d.Prefix) {
		return Request{}, apperr.Field(apperr.Validation, "prefix", prefixMessage)
	}

	return Request{
		CoreCount:     cores,
		MemoryMB:      memory,
		DurationHours: duration,
		HomePrefix:    d.Prefix,
	}, nil
}

// ValidPrefix reports whether p is an absolute path without a trailing slash.
func ValidPrefix(p string) bool {
	return len(p) > 1 && strings.HasPrefix(p, "/") && !strings.HasSuffix(p, "/")
}

// Query encodes the request as the submission endpoint's query parameters.
func (r Request) Query() url.Values {
	q := url.Values{}
	q.Set("core_count", strconv.Itoa(r.CoreCount))
	q.Set("memory", strconv.Itoa(r.MemoryMB))
	q.Set("duration", strconv.FormatFloat(r.DurationHours, 'f', -1, 64))
	q.Set("prefix", r.HomePrefix)
	return q
}
