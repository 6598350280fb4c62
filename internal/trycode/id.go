package trycode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

var (
	// ErrMissingID is returned by the strict policy for a block without id=.
	ErrMissingID = errors.New("missing try block id")
	// ErrInvalidID is returned for a declared id outside [A-Za-z0-9_-].
	ErrInvalidID = errors.New("invalid try block id")
)

var reID = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

const randomIDLen = 7

// IDPolicy resolves the id of a block found in file. declared is the value of
// the id= attribute, empty when absent.
type IDPolicy interface {
	ResolveID(file, declared string) (string, error)
}

// IDPolicyFunc adapts a function to [IDPolicy].
type IDPolicyFunc func(file, declared string) (string, error)

func (f IDPolicyFunc) ResolveID(file, declared string) (string, error) {
	return f(file, declared)
}

// Strict requires every block to declare its id.
func Strict() IDPolicy {
	return IDPolicyFunc(func(file, declared string) (string, error) {
		if len(declared) == 0 {
			return "", fmt.Errorf("%w in %s", ErrMissingID, file)
		}

		return declared, nil
	})
}

// Permissive keeps declared ids and synthesizes one with gen otherwise.
// A nil gen uses [RandomID]. Synthesized ids are not checked for collisions.
func Permissive(gen func() string) IDPolicy {
	if gen == nil {
		gen = RandomID
	}

	return IDPolicyFunc(func(_, declared string) (string, error) {
		if len(declared) == 0 {
			return gen(), nil
		}

		return declared, nil
	})
}

// RandomID returns a short random base-36 token.
func RandomID() string {
	u := uuid.New()
	id := strconv.FormatUint(binary.BigEndian.Uint64(u[:8]), 36)

	if len(id) < randomIDLen {
		id = strings.Repeat("0", randomIDLen-len(id)) + id
	}

	return id[:randomIDLen]
}

func validateID(id string) error {
	return validation.Validate(id,
		validation.Required,
		validation.Match(reID),
	)
}
