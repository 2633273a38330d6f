package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("unexpected port: %s", cfg.Port)
	}
	if cfg.RequestTimeout != 120*time.Second {
		t.Fatalf("unexpected timeout: %v", cfg.RequestTimeout)
	}
	if cfg.OutputDir != "data/output" {
		t.Fatalf("unexpected output dir: %s", cfg.OutputDir)
	}
	if cfg.TableauAPIVersion != "3.16" {
		t.Fatalf("unexpected api version: %s", cfg.TableauAPIVersion)
	}
}

func TestDepartmentByName(t *testing.T) {
	profile, err := DepartmentByName("doctors")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if profile.ViewName != "Doctors" {
		t.Fatalf("unexpected view: %s", profile.ViewName)
	}
	if len(profile.SkillFilter) != 1 || profile.SkillFilter[0] != "GPT_Doctors" {
		t.Fatalf("unexpected filter: %v", profile.SkillFilter)
	}
}

func TestDepartmentByNameUnknown(t *testing.T) {
	_, err := DepartmentByName("nope")
	if !errors.Is(err, ErrUnknownDepartment) {
		t.Fatalf("expected ErrUnknownDepartment, got %v", err)
	}
}

func TestDepartmentsReturnsCopy(t *testing.T) {
	list := Departments()
	if len(list) == 0 {
		t.Fatal("no departments configured")
	}
	list[0].Name = "mutated"
	fresh := Departments()
	if fresh[0].Name == "mutated" {
		t.Fatal("Departments leaked internal state")
	}
}

func TestCCSalesSkillFilter(t *testing.T) {
	profile, err := DepartmentByName("cc_sales")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(profile.SkillFilter) != 1 || profile.SkillFilter[0] != "GPT_CC_PROSPECT" {
		t.Fatalf("cc_sales skill filter = %v, want [GPT_CC_PROSPECT]", profile.SkillFilter)
	}
}
