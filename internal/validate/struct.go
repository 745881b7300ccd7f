package validate

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Field-level messages shown to users.
const (
	MsgHostRequired   = "Please enter a host or IP address"
	MsgHostInvalid    = "Please enter a valid IP address or domain name"
	MsgIPRequired     = "Please enter an IP address"
	MsgIPInvalid      = "Please enter a valid IP address"
	MsgMACRequired    = "Please enter a MAC address"
	MsgMACInvalid     = "Please enter a valid MAC address (e.g., 00:1B:63:84:45:E6 or 00-1B-63-84-45-E6)"
	MsgDomainRequired = "Please enter a domain name"
	MsgDomainInvalid  = "Please enter a valid domain name"
	MsgRangeInvalid   = "Please enter a valid port range (e.g., 1-1000)"
)

// RecordTypes lists the DNS record types accepted by the dnstype tag.
var RecordTypes = []string{"A", "AAAA", "CNAME", "MX", "NS", "TXT", "SOA", "PTR"}

// FieldError is a single failed field.
type FieldError struct {
	Field   string
	Message string
}

// Errors collects field failures. Its Error text is the first message so it
// can be shown directly under a form.
type Errors []FieldError

func (e Errors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return e[0].Message
}

// Fields maps field name to message.
func (e Errors) Fields() map[string]string {
	out := make(map[string]string, len(e))
	for _, fe := range e {
		out[fe.Field] = fe.Message
	}
	return out
}

var (
	once     sync.Once
	instance *validator.Validate
)

func engine() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		mustRegister(v, "ipv4loose", IsValidIPv4)
		mustRegister(v, "hostname_label", IsValidHostname)
		mustRegister(v, "nethost", IsValidHost)
		mustRegister(v, "macaddr", IsValidMAC)
		mustRegister(v, "dnstype", func(s string) bool {
			for _, t := range RecordTypes {
				if s == t {
					return true
				}
			}
			return false
		})
		instance = v
	})
	return instance
}

func mustRegister(v *validator.Validate, tag string, fn func(string) bool) {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return fn(strings.TrimSpace(fl.Field().String()))
	})
	if err != nil {
		panic(fmt.Sprintf("register %s: %v", tag, err))
	}
}

// Struct validates a request struct using `validate` tags. The returned error
// is an Errors value when any field fails.
func Struct(v any) error {
	err := engine().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

func message(fe validator.FieldError) string {
	required := fe.Tag() == "required"
	switch fe.Field() {
	case "host":
		if required {
			return MsgHostRequired
		}
		return MsgHostInvalid
	case "ip":
		if required {
			return MsgIPRequired
		}
		return MsgIPInvalid
	case "mac":
		if required {
			return MsgMACRequired
		}
		return MsgMACInvalid
	case "domain":
		if required {
			return MsgDomainRequired
		}
		return MsgDomainInvalid
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "dnstype":
		return fmt.Sprintf("unsupported record type %q", fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}
