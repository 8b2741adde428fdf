package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"unicode"

	"github.com/naoina/toml"

	"github.com/iotaledger/wallet.go/internal/client"
)

// tomlSettings matches the teacher's cmd/ranger convention: TOML keys use
// the same names as the Go struct fields, no case folding.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		link := ""
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// Config is walletd's TOML configuration (SPEC_FULL.md §3 "Configuration"
// ambient-stack entry), covering the ClientOptions entity plus the daemon's
// own process-level settings.
type Config struct {
	ClientOptions client.ClientOptions
	CoinType      uint32
	DataDir       string
	HTTPAddr      string
	MetricsAddr   string
	KafkaBrokers  []string
	SQLDSN        string // optional storage/sql reporting backend DSN
}

func defaultConfig() Config {
	return Config{
		ClientOptions: client.DefaultClientOptions,
		DataDir:       "./walletd-data",
		HTTPAddr:      ":9090",
		MetricsAddr:   ":9091",
	}
}

func loadConfig(file string, cfg *Config) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}
