package filter

import (
	"fmt"
	"log/slog"

	"github.com/ajitpratap0/troupe/internal/models"
	"github.com/ajitpratap0/troupe/internal/prompt"
)

// menu entries for GenRules. The first entry ends the session.
var ruleMenu = []string{
	"Done",
	"Include unit",
	"Exclude unit",
	"Character rank at least",
	"Character rank at most",
	"Unit rank at least",
	"Unit rank at most",
	"Character aspect",
	"Unit aspect",
	"Character tag",
	"Unit tag",
	"Character expression",
	"Unit expression",
}

// GenRules builds a rule list interactively. Each rule is checked with Parse before it is
// kept; rules that fail are logged and dropped so the user can try again.
func GenRules(p prompt.Prompter, unitNames []string, logger *slog.Logger) ([]string, error) {
	var rules []string
	for {
		choice, err := p.Choose("Add a filter rule", ruleMenu)
		if err != nil {
			return rules, err
		}
		if choice == 0 {
			return rules, nil
		}

		rule, err := buildRule(p, ruleMenu[choice], unitNames)
		if err != nil {
			return rules, err
		}
		if rule == "" {
			continue
		}
		if _, err := Parse(rule); err != nil {
			logger.Warn("rule rejected", "rule", rule, "error", err)
			continue
		}
		rules = append(rules, rule)
	}
}

// buildRule asks for the argument of one menu entry. An empty result means nothing to add.
func buildRule(p prompt.Prompter, entry string, unitNames []string) (string, error) {
	switch entry {
	case "Include unit", "Exclude unit":
		if len(unitNames) == 0 {
			return "", nil
		}
		i, err := p.Choose("Which unit?", unitNames)
		if err != nil {
			return "", err
		}
		verb := "include"
		if entry == "Exclude unit" {
			verb = "exclude"
		}
		return fmt.Sprintf("%s unit %s", verb, unitNames[i]), nil

	case "Character rank at least", "Character rank at most", "Unit rank at least", "Unit rank at most":
		target, op := models.KindCharacter, ">="
		if entry == "Unit rank at least" || entry == "Unit rank at most" {
			target = models.KindUnit
		}
		if entry == "Character rank at most" || entry == "Unit rank at most" {
			op = "<="
		}
		ladder := models.Ladder(target)
		i, err := p.Choose("Which rank?", ladder)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s rank %s %s", target, op, ladder[i]), nil

	case "Character aspect", "Unit aspect", "Character tag", "Unit tag":
		target, kw := models.KindCharacter, "aspect"
		if entry == "Unit aspect" || entry == "Unit tag" {
			target = models.KindUnit
		}
		if entry == "Character tag" || entry == "Unit tag" {
			kw = "tag"
		}
		text, err := p.Input(fmt.Sprintf("Which %s?", kw))
		if err != nil || text == "" {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", target, kw, text), nil

	case "Character expression", "Unit expression":
		target, fields := models.KindCharacter, "name, rank, member, nickname"
		if entry == "Unit expression" {
			target, fields = models.KindUnit, "name, rank"
		}
		text, err := p.Input(fmt.Sprintf("Expression over %s:", fields))
		if err != nil || text == "" {
			return "", err
		}
		return fmt.Sprintf("%s where %s", target, text), nil
	}
	return "", nil
}
