package measure

import "strings"

// classRule maps attribute name prefixes to a Kind. A name matching one of
// excludes is skipped by the rule even when a prefix matches.
type classRule struct {
	kind     Kind
	prefixes []string
	excludes []string
}

// withMeas returns prefixes together with their "meas_" forms.
func withMeas(prefixes ...string) []string {
	out := make([]string, 0, 2*len(prefixes))
	for _, p := range prefixes {
		out = append(out, p, "meas_"+p)
	}
	return out
}

// classRules is evaluated in order and the first match wins. Per-cell names
// such as "vcap1" must resolve before the stack-level "vcap" rule, and the
// "cap_ov"/"cap_uv" thresholds before the capacitance rule.
var classRules = []classRule{
	{kind: VoltageLow, prefixes: withMeas("vcap1", "vcap2", "vcap3", "vcap4", "gpi", "vshunt", "cap_ov", "cap_uv")},
	{kind: VoltageMid, prefixes: withMeas("vcap")},
	{kind: VoltageHigh, prefixes: withMeas("vin", "vout")},
	{kind: Capacitance, prefixes: withMeas("cap"), excludes: withMeas("cap_esr")},
	{kind: Temperature, prefixes: withMeas("dtemp")},
	{kind: Resistance, prefixes: withMeas("esr")},
}

// Classify returns the Kind for an attribute name. Names matched by no rule,
// including the status words and alarm mask registers, are Raw.
func Classify(name string) Kind {
	for _, r := range classRules {
		if hasAnyPrefix(name, r.excludes) {
			continue
		}
		if hasAnyPrefix(name, r.prefixes) {
			return r.kind
		}
	}
	return Raw
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
