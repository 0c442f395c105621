// Package assembly draws a session's questions from the selected subjects'
// banks according to per-mode quotas.
package assembly

import (
	"errors"
	"fmt"
)

// Quota is how many questions a subject contributes and from which pool.
type Quota struct {
	Count int `json:"count"`
	// NonPassageOnly excludes every passage question from the pool.
	NonPassageOnly bool `json:"non_passage_only,omitempty"`
	// OneGroup takes one complete passage group, then fills the rest of
	// Count with non-passage questions.
	OneGroup bool `json:"one_group,omitempty"`
}

// Policy holds quotas and timing for one mode combination. Lead applies to
// the compulsory subject in multi-subject mode and to a passage-bearing
// subject in single-subject mode; Other applies to everything else.
type Policy struct {
	Profile       string `json:"profile"`
	Lead          Quota  `json:"lead"`
	Other         Quota  `json:"other"`
	PassageCap    int    `json:"passage_cap"`
	TimeBudgetSec int    `json:"time_budget_sec"`
}

var registry = map[string]Policy{}

func init() {
	for _, p := range []Policy{
		{Profile: "multi.test", Lead: Quota{Count: 10, NonPassageOnly: true}, Other: Quota{Count: 10}, PassageCap: 10, TimeBudgetSec: 1560},
		{Profile: "multi.exam", Lead: Quota{Count: 60, OneGroup: true}, Other: Quota{Count: 40}, PassageCap: 10, TimeBudgetSec: 7200},
		{Profile: "single.test", Lead: Quota{Count: 20, NonPassageOnly: true}, Other: Quota{Count: 20}, PassageCap: 10, TimeBudgetSec: 840},
		{Profile: "single.exam", Lead: Quota{Count: 40, OneGroup: true}, Other: Quota{Count: 40}, PassageCap: 10, TimeBudgetSec: 1620},
	} {
		if err := Register(p); err != nil {
			panic(err)
		}
	}
}

// Register installs or replaces the policy for p.Profile.
func Register(p Policy) error {
	if err := ValidatePolicy(p); err != nil {
		return err
	}
	registry[p.Profile] = p
	return nil
}

// Lookup returns the registered policy for a profile such as "multi.exam".
func Lookup(profile string) (Policy, bool) { p, ok := registry[profile]; return p, ok }

func ValidatePolicy(p Policy) error {
	if p.Profile == "" {
		return errors.New("policy.profile is required")
	}
	for name, q := range map[string]Quota{"lead": p.Lead, "other": p.Other} {
		if q.Count <= 0 {
			return fmt.Errorf("%s: %s quota must be positive", p.Profile, name)
		}
		if q.NonPassageOnly && q.OneGroup {
			return fmt.Errorf("%s: %s quota cannot be both non-passage-only and one-group", p.Profile, name)
		}
	}
	if p.PassageCap < 0 {
		return fmt.Errorf("%s: negative passage_cap", p.Profile)
	}
	if p.TimeBudgetSec <= 0 {
		return fmt.Errorf("%s: time_budget_sec must be positive", p.Profile)
	}
	return nil
}
