// Package seed loads the bundled case study catalogue.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"coreflow-cms/internal/casestudies"
	"coreflow-cms/internal/taxonomy"

	"gopkg.in/yaml.v3"
)

//go:embed casestudies.yaml
var bundled []byte

type Entry struct {
	Title       string `yaml:"title"`
	Slug        string `yaml:"slug"`
	Client      string `yaml:"client"`
	Location    string `yaml:"location"`
	Industry    string `yaml:"industry"`
	Excerpt     string `yaml:"excerpt"`
	Image       string `yaml:"image"`
	Description string `yaml:"description"`
}

type file struct {
	CaseStudies []Entry `yaml:"case_studies"`
}

// Bundled returns the catalogue shipped with the binary.
func Bundled() ([]Entry, error) {
	return Parse(bundled)
}

func Parse(raw []byte) ([]Entry, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse seed data: %w", err)
	}
	return f.CaseStudies, nil
}

type Result struct {
	Removed int
	Created int
	Updated int
}

// Run upserts entries by slug, creating the named terms on demand. With reset every
// existing case study (and its comments) is removed first.
func Run(ctx context.Context, terms *taxonomy.Service, cases *casestudies.Service, entries []Entry, reset bool) (Result, error) {
	var res Result
	if reset {
		existing, err := cases.All(ctx)
		if err != nil {
			return res, err
		}
		for _, item := range existing {
			if err := cases.Delete(ctx, item.ID); err != nil {
				return res, fmt.Errorf("remove %s: %w", item.Slug, err)
			}
			res.Removed++
		}
	}

	for _, e := range entries {
		req, err := request(ctx, terms, e)
		if err != nil {
			return res, fmt.Errorf("seed %s: %w", e.Title, err)
		}

		current, err := cases.FindBySlug(ctx, e.Slug)
		switch {
		case err == nil:
			if _, err := cases.Update(ctx, current.ID, req); err != nil {
				return res, fmt.Errorf("update %s: %w", e.Slug, err)
			}
			res.Updated++
		case errors.Is(err, casestudies.ErrNotFound):
			if _, err := cases.Create(ctx, req); err != nil {
				return res, fmt.Errorf("create %s: %w", e.Slug, err)
			}
			res.Created++
		default:
			return res, err
		}
	}
	return res, nil
}

func request(ctx context.Context, terms *taxonomy.Service, e Entry) (casestudies.UpsertRequest, error) {
	client, err := terms.Ensure(ctx, taxonomy.KindClient, e.Client)
	if err != nil {
		return casestudies.UpsertRequest{}, err
	}
	location, err := terms.Ensure(ctx, taxonomy.KindLocation, e.Location)
	if err != nil {
		return casestudies.UpsertRequest{}, err
	}
	industry, err := terms.Ensure(ctx, taxonomy.KindIndustry, e.Industry)
	if err != nil {
		return casestudies.UpsertRequest{}, err
	}
	return casestudies.UpsertRequest{
		Slug:        e.Slug,
		Title:       e.Title,
		ClientID:    client.ID,
		LocationID:  location.ID,
		IndustryID:  industry.ID,
		Description: e.Description,
		Excerpt:     e.Excerpt,
		Image:       e.Image,
	}, nil
}
