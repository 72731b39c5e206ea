package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/troupe/internal/models"
)

// frontMatter is the YAML header of one entity file.
type frontMatter struct {
	Name      string            `yaml:"name"`
	Rank      string            `yaml:"rank,omitempty"`
	Member    string            `yaml:"member,omitempty"`
	Nickname  string            `yaml:"nickname,omitempty"`
	Aspects   []string          `yaml:"aspects,omitempty"`
	Relations []models.Relation `yaml:"relations,omitempty"`
	History   *int              `yaml:"history,omitempty"`
}

// frontMatterPattern matches a leading "---" block. The closing line may be the last line.
var frontMatterPattern = regexp.MustCompile(`(?s)\A---[ \t]*\r?\n(?:(.*?)\r?\n)?---[ \t]*(?:\r?\n|\z)`)

// splitFrontMatter separates the YAML header from the body. Content without a header is all body.
func splitFrontMatter(content []byte) (header []byte, body string, ok bool) {
	m := frontMatterPattern.FindSubmatchIndex(content)
	if m == nil {
		return nil, string(content), false
	}
	if m[2] >= 0 {
		header = content[m[2]:m[3]]
	}
	return header, string(content[m[1]:]), true
}

// decodeFrontMatter parses header strictly; unknown keys are an error.
func decodeFrontMatter(header []byte) (frontMatter, error) {
	var fm frontMatter
	dec := yaml.NewDecoder(bytes.NewReader(header))
	dec.KnownFields(true)
	if err := dec.Decode(&fm); err != nil && !errors.Is(err, io.EOF) {
		return frontMatter{}, fmt.Errorf("invalid front matter: %w", err)
	}
	return fm, nil
}

// parseRecord fills the shared record from fm. stem names records that carry no name key.
func parseRecord(kind models.Kind, fm frontMatter, stem, body string) (models.Record, error) {
	rec := models.Record{
		Name:         fm.Name,
		Aspects:      fm.Aspects,
		HistoryIndex: models.NoHistory,
		Body:         body,
	}
	if rec.Name == "" {
		rec.Name = stem
	}
	if fm.Rank != "" {
		rank, err := models.RankIndex(models.Ladder(kind), fm.Rank)
		if err != nil {
			return models.Record{}, err
		}
		rec.Rank = rank
	}
	for _, rel := range fm.Relations {
		if rel.Partner == "" {
			return models.Record{}, fmt.Errorf("relation without partner")
		}
		rec.AddRelation(rel)
	}
	if fm.History != nil {
		rec.HistoryIndex = *fm.History
	}
	return rec, nil
}

func parseCharacter(content []byte, stem string) (models.Character, error) {
	header, body, _ := splitFrontMatter(content)
	fm, err := decodeFrontMatter(header)
	if err != nil {
		return models.Character{}, err
	}
	rec, err := parseRecord(models.KindCharacter, fm, stem, body)
	if err != nil {
		return models.Character{}, err
	}
	c := models.Character{Record: rec, Member: fm.Member, Nickname: fm.Nickname}
	if c.Member == "" {
		c.Member = models.NoUnit
	}
	return c, nil
}

func parseUnit(content []byte, stem string) (models.Unit, error) {
	header, body, _ := splitFrontMatter(content)
	fm, err := decodeFrontMatter(header)
	if err != nil {
		return models.Unit{}, err
	}
	if fm.Member != "" || fm.Nickname != "" {
		return models.Unit{}, fmt.Errorf("units take no member or nickname")
	}
	rec, err := parseRecord(models.KindUnit, fm, stem, body)
	if err != nil {
		return models.Unit{}, err
	}
	return models.Unit{Record: rec}, nil
}

func recordFrontMatter(kind models.Kind, rec *models.Record) frontMatter {
	fm := frontMatter{
		Name:      rec.Name,
		Rank:      models.RankName(models.Ladder(kind), rec.Rank),
		Aspects:   rec.Aspects,
		Relations: rec.Relations,
	}
	if rec.HistoryIndex != models.NoHistory {
		h := rec.HistoryIndex
		fm.History = &h
	}
	return fm
}

func encodeRecord(fm frontMatter, body string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return nil, fmt.Errorf("encode front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode front matter: %w", err)
	}
	buf.WriteString("---\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}

func encodeCharacter(c *models.Character) ([]byte, error) {
	fm := recordFrontMatter(models.KindCharacter, &c.Record)
	if c.HasUnit() {
		fm.Member = c.Member
	}
	fm.Nickname = c.Nickname
	return encodeRecord(fm, c.Body)
}

func encodeUnit(u *models.Unit) ([]byte, error) {
	return encodeRecord(recordFrontMatter(models.KindUnit, &u.Record), u.Body)
}
