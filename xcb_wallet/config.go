package main

import (
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pkg/errors"
	"github.com/purelabio/xcb"
)

const confPrefix = "XCB"

type config struct {
	conf.Version
	RpcUrl      string        `conf:"default:http://127.0.0.1:8545" flag:"rpc-url" validate:"required,url"`
	Network     string        `conf:"default:mainnet" flag:"network" validate:"required,network"`
	KeystoreDir string        `conf:"default:keystore" flag:"keystore-dir" validate:"required"`
	Password    string        `conf:"noprint" flag:"password"`
	AddressBook string        `conf:"default:addressbook.toml" flag:"address-book"`
	Timeout     time.Duration `conf:"default:5m" flag:"timeout" validate:"gt=0"`
}

/*
Reads defaults and the environment. Command-line flags belong to cobra and are
applied on top of the result.
*/
func loadConfig() (config, error) {
	cfg := config{
		Version: conf.Version{
			Build: build,
			Desc:  "Core Coin wallet",
		},
	}

	args := os.Args
	os.Args = args[:1]
	defer func() { os.Args = args }()

	_, err := conf.Parse(confPrefix, &cfg)
	if err != nil {
		return cfg, errors.Wrap(err, `parsing config`)
	}
	return cfg, nil
}

func (self config) network() xcb.Network {
	out, _ := xcb.ParseNetwork(self.Network)
	return out
}

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New()

	translator, _ = ut.New(en.New(), en.New()).GetTranslator("en")
	err := en_translations.RegisterDefaultTranslations(validate, translator)
	if err != nil {
		panic(err)
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("flag")
		if name == "" || name == "-" {
			return strings.ToLower(fld.Name)
		}
		return name
	})

	registerValidation("network", "{0} must be mainnet, devin, private-<id> or a network id",
		func(fl validator.FieldLevel) bool {
			_, err := xcb.ParseNetwork(fl.Field().String())
			return err == nil
		})

	registerValidation("address", "{0} must be an address",
		func(fl validator.FieldLevel) bool {
			_, err := xcb.ParseAddress(fl.Field().String())
			return err == nil
		})

	registerValidation("amount", "{0} must be an amount such as \"1.5 core\"",
		func(fl validator.FieldLevel) bool {
			_, err := xcb.ParseAmount(fl.Field().String())
			return err == nil
		})
}

func registerValidation(tag string, text string, fn validator.Func) {
	err := validate.RegisterValidation(tag, fn)
	if err != nil {
		panic(err)
	}

	err = validate.RegisterTranslation(tag, translator,
		func(trans ut.Translator) error {
			return trans.Add(tag, text, true)
		},
		func(trans ut.Translator, fe validator.FieldError) string {
			out, _ := trans.T(tag, fe.Field())
			return out
		},
	)
	if err != nil {
		panic(err)
	}
}

// Failed validations of one struct, translated into flag-oriented messages.
type FieldErrors []FieldError

type FieldError struct {
	Field string
	Error string
}

func (self FieldErrors) Error() string {
	msgs := make([]string, 0, len(self))
	for _, fe := range self {
		msgs = append(msgs, fe.Error)
	}
	return strings.Join(msgs, "; ")
}

// Validates a struct carrying "validate" tags.
func check(val interface{}) error {
	err := validate.Struct(val)
	if err == nil {
		return nil
	}

	var verrors validator.ValidationErrors
	if !errors.As(err, &verrors) {
		return err
	}

	var fields FieldErrors
	for _, verror := range verrors {
		fields = append(fields, FieldError{
			Field: verror.Field(),
			Error: verror.Translate(translator),
		})
	}
	return fields
}
