package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
)

type Application struct {
	Listen   string   `koanf:"listen"`
	Store    Store    `koanf:"store"`
	Database Database `koanf:"db"`
	Mongo    Mongo    `koanf:"mongo"`
	Auth     Auth     `koanf:"auth"`
	Events   Events   `koanf:"events"`
	Calendar Calendar `koanf:"calendar"`
	Metrics  Metrics  `koanf:"metrics"`
}

type Store struct {
	// Driver selects the event and user store: "postgres" or "mongo".
	Driver string `koanf:"driver"`
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

type Mongo struct {
	Uri      string `koanf:"uri"`
	Database string `koanf:"database"`
}

type Auth struct {
	// AutoProvision creates a user on the first request carrying an unknown identity
	// instead of rejecting it.
	AutoProvision bool `koanf:"autoprovision"`
}

type Events struct {
	// RejectPastDates refuses to create or move events to a day before the caller's today.
	RejectPastDates bool `koanf:"rejectpastdates"`
}

type Calendar struct {
	// NavigationMonths limits how many months back and forward from the current one
	// the month view may be requested. Zero disables the limit.
	NavigationMonths int `koanf:"navigationmonths"`
}

type Metrics struct {
	Enabled bool `koanf:"enabled"`
}

func defaults() Application {
	return Application{
		Listen: ":8181",
		Store: Store{
			Driver: StoreDriverPostgres,
		},
		Database: Database{
			Host:   "localhost",
			Port:   5432,
			User:   "planit",
			Pass:   "",
			Name:   "planit",
			Schema: "planit",
		},
		Mongo: Mongo{
			Uri:      "mongodb://localhost:27017",
			Database: "planit",
		},
		Auth: Auth{
			AutoProvision: true,
		},
		Calendar: Calendar{
			NavigationMonths: 1,
		},
		Metrics: Metrics{
			Enabled: true,
		},
	}
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: "PLANIT_",
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, "PLANIT_")), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	if err := app.validate(); err != nil {
		return Application{}, err
	}

	return app, nil
}

func (a Application) validate() error {
	switch a.Store.Driver {
	case StoreDriverPostgres, StoreDriverMongo:
	default:
		return fmt.Errorf("unsupported store driver %q", a.Store.Driver)
	}
	if a.Calendar.NavigationMonths < 0 {
		return fmt.Errorf("calendar.navigationmonths must not be negative, got %d", a.Calendar.NavigationMonths)
	}
	return nil
}
