package resolve

import (
	"errors"
	"fmt"

	"github.com/ajitpratap0/troupe/internal/models"
	"github.com/ajitpratap0/troupe/internal/prompt"
	"github.com/ajitpratap0/troupe/internal/verify"
)

// Outcome is the repair applied to one name.
type Outcome string

const (
	OutcomeRenamed Outcome = "renamed"
	OutcomeDeleted Outcome = "deleted"
	OutcomeSplit   Outcome = "split"
	OutcomeSkipped Outcome = "skipped"
)

// Summary counts outcomes of a bulk resolve.
type Summary struct {
	Renamed int `json:"renamed"`
	Deleted int `json:"deleted"`
	Split   int `json:"split"`
	Skipped int `json:"skipped"`
}

func (s *Summary) add(o Outcome) {
	switch o {
	case OutcomeRenamed:
		s.Renamed++
	case OutcomeDeleted:
		s.Deleted++
	case OutcomeSplit:
		s.Split++
	default:
		s.Skipped++
	}
}

const newNameOption = "Enter a new name"

// RefactorUnit asks how to repair the missing unit name and applies the answer.
// A name that is no longer dangling is skipped without prompting.
func (res *Resolver) RefactorUnit(name string) (Outcome, error) {
	if !verify.DanglingUnit(res.roster, name) {
		return OutcomeSkipped, nil
	}
	if res.prompt == nil {
		return OutcomeSkipped, fmt.Errorf("refactor unit %q: no prompter", name)
	}

	choice, err := res.prompt.Choose(
		fmt.Sprintf("The unit %s cannot be found. What should happen to it?", name),
		[]string{"Rename", "Delete", "Split", "Skip"},
	)
	if err != nil {
		return OutcomeSkipped, err
	}

	switch choice {
	case 0:
		target, err := res.pickName(fmt.Sprintf("Rename unit %s to:", name), res.roster.UnitNames())
		if err != nil {
			return OutcomeSkipped, err
		}
		if _, err := res.RenameUnit(name, target); err != nil {
			return OutcomeSkipped, err
		}
		return OutcomeRenamed, nil
	case 1:
		if err := res.DeleteUnit(name); err != nil {
			return OutcomeSkipped, err
		}
		return OutcomeDeleted, nil
	case 2:
		return res.splitInteractive(name)
	default:
		return OutcomeSkipped, nil
	}
}

// RefactorCharacter asks how to repair the missing character name and applies the answer.
// A name that is no longer dangling is skipped without prompting.
func (res *Resolver) RefactorCharacter(name string) (Outcome, error) {
	if !verify.DanglingCharacter(res.roster, name) {
		return OutcomeSkipped, nil
	}
	if res.prompt == nil {
		return OutcomeSkipped, fmt.Errorf("refactor character %q: no prompter", name)
	}

	choice, err := res.prompt.Choose(
		fmt.Sprintf("The character %s cannot be found. What should happen to it?", name),
		[]string{"Rename", "Delete", "Skip"},
	)
	if err != nil {
		return OutcomeSkipped, err
	}

	switch choice {
	case 0:
		target, err := res.pickName(fmt.Sprintf("Rename character %s to:", name), res.roster.CharacterNames())
		if err != nil {
			return OutcomeSkipped, err
		}
		if _, err := res.RenameCharacter(name, target); err != nil {
			return OutcomeSkipped, err
		}
		return OutcomeRenamed, nil
	case 1:
		if err := res.DeleteCharacter(name); err != nil {
			return OutcomeSkipped, err
		}
		return OutcomeDeleted, nil
	default:
		return OutcomeSkipped, nil
	}
}

// pickName offers the existing names plus a free-form option.
func (res *Resolver) pickName(question string, existing []string) (string, error) {
	options := append(append([]string{}, existing...), newNameOption)
	i, err := res.prompt.Choose(question, options)
	if err != nil {
		return "", err
	}
	if i < len(existing) {
		return existing[i], nil
	}
	return res.prompt.Input("New name:")
}

func (res *Resolver) splitInteractive(unit string) (Outcome, error) {
	candidates := res.SplitCandidates(unit)
	members := res.roster.MembersOf(unit)
	if len(candidates) == 0 || len(members) == 0 {
		// Let Split produce the precise error.
		return OutcomeSkipped, res.Split(unit, nil)
	}

	assignment := make(map[string]string, len(members))
	for _, i := range members {
		name := res.roster.Characters[i].Name
		c, err := res.prompt.Choose(fmt.Sprintf("Move %s to which unit?", name), candidates)
		if err != nil {
			return OutcomeSkipped, err
		}
		assignment[name] = candidates[c]
	}
	if err := res.Split(unit, assignment); err != nil {
		return OutcomeSkipped, err
	}
	return OutcomeSplit, nil
}

// ResolveAll walks every missing unit and then every missing character in the report,
// asking how to repair each. Inapplicable or rejected repairs are logged and skipped;
// an aborted prompt stops the walk and returns what was done so far.
func (res *Resolver) ResolveAll(report verify.Report) (Summary, error) {
	var sum Summary
	type step struct {
		kind models.Kind
		name string
	}
	steps := make([]step, 0, len(report.MissingUnits)+len(report.MissingCharacters))
	for _, n := range report.MissingUnits {
		steps = append(steps, step{models.KindUnit, n})
	}
	for _, n := range report.MissingCharacters {
		steps = append(steps, step{models.KindCharacter, n})
	}

	for _, st := range steps {
		var (
			out Outcome
			err error
		)
		if st.kind == models.KindUnit {
			out, err = res.RefactorUnit(st.name)
		} else {
			out, err = res.RefactorCharacter(st.name)
		}
		switch {
		case err == nil:
		case errors.Is(err, prompt.ErrAborted):
			return sum, err
		case errors.Is(err, ErrInapplicable), errors.Is(err, ErrNameTaken), errors.Is(err, ErrInvalidName):
			res.logger.Warn("repair skipped", "kind", st.kind, "name", st.name, "error", err)
		default:
			return sum, fmt.Errorf("resolving %s %q: %w", st.kind, st.name, err)
		}
		sum.add(out)
	}
	return sum, nil
}
