// seed loads an initial roster from a YAML file through the roster service,
// so every seeded student is change-logged like any other write.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/campusops/gradebook/app"
	"github.com/campusops/gradebook/config"
	"github.com/campusops/gradebook/services/roster"
)

// SeedFile is the YAML layout for roster seed data
type SeedFile struct {
	Students []SeedStudent `yaml:"students"`
}

// SeedStudent is one roster row to create
type SeedStudent struct {
	Name  string `yaml:"name"`
	Grade int    `yaml:"grade"`
}

func main() {
	file := flag.String("file", "seed/roster.yaml", "Path to the roster seed file")
	force := flag.Bool("force", false, "Seed even when the roster already has students")
	flag.Parse()

	if err := run(context.Background(), *file, *force); err != nil {
		fmt.Fprintln(os.Stderr, "seed:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, path string, force bool) error {
	seed, err := loadSeedFile(path)
	if err != nil {
		return err
	}

	cfg, err := config.New(ctx)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger, err := app.NewLogger(cfg.Observability)
	if err != nil {
		return err
	}

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = deps.Close(ctx) }()

	// A populated roster means seeding already ran; reseeding would double
	// the students and their log entries.
	existing, err := deps.Roster.ListStudents(ctx, 1, 0)
	if err != nil {
		return fmt.Errorf("failed to check roster: %w", err)
	}
	if len(existing) > 0 && !force {
		fmt.Println("roster already has students, nothing to do (use -force to seed anyway)")
		return nil
	}

	for _, s := range seed.Students {
		student, err := deps.Roster.AddStudent(ctx, roster.AddStudentInput{Name: s.Name, Grade: s.Grade})
		if err != nil {
			return fmt.Errorf("failed to seed %q: %w", s.Name, err)
		}
		fmt.Printf("seeded student %d: %s (grade %d)\n", student.ID, student.Name, student.Grade)
	}

	fmt.Printf("seeded %d students\n", len(seed.Students))
	return nil
}

// loadSeedFile reads and parses a roster seed file. Unknown YAML fields are
// rejected to catch typos before anything is written.
func loadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed SeedFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&seed); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(seed.Students) == 0 {
		return nil, fmt.Errorf("seed file %s lists no students", path)
	}
	return &seed, nil
}
