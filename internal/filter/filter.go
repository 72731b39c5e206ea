// Package filter compiles print rules into per-kind predicates and applies them to copies
// of the entity lists. It keeps no state between calls.
//
// A rule is one line of a small closed grammar:
//
//	include unit <name>
//	exclude unit <name>
//	character|unit rank >=|<= <rank name or index>
//	character|unit aspect <text>
//	character|unit tag <text>
//	character|unit where <AIP-160 expression>
//
// Keywords are case-insensitive. All include rules together form one inclusion set;
// every other rule is conjoined.
package filter

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"

	"github.com/ajitpratap0/troupe/internal/metrics"
	"github.com/ajitpratap0/troupe/internal/models"
	"github.com/ajitpratap0/troupe/internal/roster"
)

// ErrUnknownRule is returned for a rule outside the grammar.
var ErrUnknownRule = errors.New("unknown rule")

// RuleKind names one predicate of the grammar.
type RuleKind string

const (
	RuleIncludeUnit RuleKind = "include unit"
	RuleExcludeUnit RuleKind = "exclude unit"
	RuleRankAtLeast RuleKind = "rank >="
	RuleRankAtMost  RuleKind = "rank <="
	RuleAspect      RuleKind = "aspect"
	RuleTag         RuleKind = "tag"
	RuleWhere       RuleKind = "where"
)

// Rule is a parsed rule. Target is empty for the unit inclusion and exclusion rules,
// which constrain both kinds.
type Rule struct {
	Kind   RuleKind
	Target models.Kind
	Value  string
	Rank   int

	expr *expr.Expr
}

// String renders the rule in canonical form, which Parse accepts.
func (r Rule) String() string {
	switch r.Kind {
	case RuleIncludeUnit, RuleExcludeUnit:
		return fmt.Sprintf("%s %s", r.Kind, r.Value)
	case RuleRankAtLeast, RuleRankAtMost:
		return fmt.Sprintf("%s %s %d", r.Target, r.Kind, r.Rank)
	default:
		return fmt.Sprintf("%s %s %s", r.Target, r.Kind, r.Value)
	}
}

// cutWord splits off the first whitespace-delimited word.
func cutWord(s string) (word, rest string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexFunc(s, isSpace); i >= 0 {
		return s[:i], strings.TrimSpace(s[i:])
	}
	return s, ""
}

func isSpace(r rune) bool { return r == ' ' || r == '\t' }

// Parse parses one rule.
func Parse(s string) (Rule, error) {
	head, rest := cutWord(s)
	switch strings.ToLower(head) {
	case "include", "exclude":
		kw, name := cutWord(rest)
		if !strings.EqualFold(kw, "unit") || name == "" {
			return Rule{}, fmt.Errorf("%w: %q", ErrUnknownRule, s)
		}
		kind := RuleIncludeUnit
		if strings.EqualFold(head, "exclude") {
			kind = RuleExcludeUnit
		}
		return Rule{Kind: kind, Value: name}, nil
	case string(models.KindCharacter), string(models.KindUnit):
		return parseTargeted(models.Kind(strings.ToLower(head)), rest, s)
	default:
		return Rule{}, fmt.Errorf("%w: %q", ErrUnknownRule, s)
	}
}

func parseTargeted(target models.Kind, rest, raw string) (Rule, error) {
	kw, arg := cutWord(rest)
	if arg == "" {
		return Rule{}, fmt.Errorf("%w: %q", ErrUnknownRule, raw)
	}

	switch strings.ToLower(kw) {
	case "rank":
		op, value := cutWord(arg)
		var kind RuleKind
		switch op {
		case ">=":
			kind = RuleRankAtLeast
		case "<=":
			kind = RuleRankAtMost
		default:
			return Rule{}, fmt.Errorf("%w: %q: rank needs >= or <=", ErrUnknownRule, raw)
		}
		rank, err := models.RankIndex(models.Ladder(target), value)
		if err != nil {
			return Rule{}, fmt.Errorf("rule %q: %w", raw, err)
		}
		return Rule{Kind: kind, Target: target, Value: strconv.Itoa(rank), Rank: rank}, nil
	case "aspect":
		return Rule{Kind: RuleAspect, Target: target, Value: arg}, nil
	case "tag":
		return Rule{Kind: RuleTag, Target: target, Value: arg}, nil
	case "where":
		fields := CharacterFields
		if target == models.KindUnit {
			fields = UnitFields
		}
		e, err := ParseExpr(arg, fields)
		if err != nil {
			return Rule{}, fmt.Errorf("rule %q: %w", raw, err)
		}
		return Rule{Kind: RuleWhere, Target: target, Value: arg, expr: e}, nil
	default:
		return Rule{}, fmt.Errorf("%w: %q", ErrUnknownRule, raw)
	}
}

// Filter is a compiled rule set.
type Filter struct {
	rules   []Rule
	include map[string]struct{}
}

// Compile parses every rule. An empty rule set compiles to the identity filter.
func Compile(rules []string) (*Filter, error) {
	f := &Filter{}
	for _, s := range rules {
		r, err := Parse(s)
		if err != nil {
			return nil, err
		}
		if r.Kind == RuleIncludeUnit {
			if f.include == nil {
				f.include = make(map[string]struct{})
			}
			f.include[r.Value] = struct{}{}
			continue
		}
		f.rules = append(f.rules, r)
	}
	return f, nil
}

// Rules returns the non-inclusion rules followed by one include rule per included unit, sorted by name.
func (f *Filter) Rules() []Rule {
	out := append([]Rule(nil), f.rules...)
	for _, name := range slices.Sorted(maps.Keys(f.include)) {
		out = append(out, Rule{Kind: RuleIncludeUnit, Value: name})
	}
	return out
}

func (f *Filter) included(unit string) bool {
	if f.include == nil {
		return true
	}
	_, ok := f.include[unit]
	return ok
}

// Character reports whether c passes every rule.
func (f *Filter) Character(c *models.Character) (bool, error) {
	if !f.included(c.Member) {
		return false, nil
	}
	for _, r := range f.rules {
		if r.Kind == RuleExcludeUnit {
			if c.Member == r.Value {
				return false, nil
			}
			continue
		}
		if r.Target != models.KindCharacter {
			continue
		}
		ok, err := r.match(&c.Record, func(name string) (any, bool) {
			switch name {
			case "name":
				return c.Name, true
			case "rank":
				return int64(c.Rank), true
			case "member":
				return c.Member, true
			case "nickname":
				return c.Nickname, true
			}
			return nil, false
		})
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// Unit reports whether u passes every rule.
func (f *Filter) Unit(u *models.Unit) (bool, error) {
	if !f.included(u.Name) {
		return false, nil
	}
	for _, r := range f.rules {
		if r.Kind == RuleExcludeUnit {
			if u.Name == r.Value {
				return false, nil
			}
			continue
		}
		if r.Target != models.KindUnit {
			continue
		}
		ok, err := r.match(&u.Record, func(name string) (any, bool) {
			switch name {
			case "name":
				return u.Name, true
			case "rank":
				return int64(u.Rank), true
			}
			return nil, false
		})
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (r Rule) match(rec *models.Record, resolve Resolver) (bool, error) {
	switch r.Kind {
	case RuleRankAtLeast:
		return rec.Rank >= r.Rank, nil
	case RuleRankAtMost:
		return rec.Rank <= r.Rank, nil
	case RuleAspect:
		return rec.HasAspect(r.Value), nil
	case RuleTag:
		return rec.HasTag(r.Value), nil
	case RuleWhere:
		ok, err := Evaluate(r.expr, resolve)
		if err != nil {
			return false, fmt.Errorf("evaluate %q on %s: %w", r.Value, rec.Name, err)
		}
		return ok, nil
	default:
		return false, fmt.Errorf("%w: kind %q", ErrUnknownRule, r.Kind)
	}
}

// Apply returns deep copies of the characters and units that pass f.
func (f *Filter) Apply(chars []models.Character, units []models.Unit) ([]models.Character, []models.Unit, error) {
	outChars := roster.CloneCharacters(chars)
	outUnits := roster.CloneUnits(units)

	keptChars := outChars[:0]
	for i := range outChars {
		ok, err := f.Character(&outChars[i])
		if err != nil {
			return nil, nil, err
		}
		if ok {
			keptChars = append(keptChars, outChars[i])
		}
	}

	keptUnits := outUnits[:0]
	for i := range outUnits {
		ok, err := f.Unit(&outUnits[i])
		if err != nil {
			return nil, nil, err
		}
		if ok {
			keptUnits = append(keptUnits, outUnits[i])
		}
	}

	metrics.Inc(metrics.FilterTotal)
	return keptChars, keptUnits, nil
}

// Rules compiles rules and applies them to copies of chars and units. The caller's slices
// are never modified; an empty rule set returns equal copies.
func Rules(rules []string, chars []models.Character, units []models.Unit) ([]models.Character, []models.Unit, error) {
	f, err := Compile(rules)
	if err != nil {
		return nil, nil, err
	}
	return f.Apply(chars, units)
}
