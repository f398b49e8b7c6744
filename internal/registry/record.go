package registry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"macwatch/internal/domain"
)

// placeholderOrganization fills unassigned slots in the MA-M and MA-S feeds
const placeholderOrganization = "IEEE Registration Authority"

// feedColumns is the column count of every feed row
const feedColumns = 4

// errPlaceholder marks a row that is dropped without being counted as skipped
var errPlaceholder = errors.New("placeholder registry entry")

// parseRecord converts one CSV record of a class feed into an assignment
func parseRecord(class domain.AssignmentClass, rec []string) (domain.Assignment, error) {
	if len(rec) != feedColumns {
		return domain.Assignment{}, fmt.Errorf("%w: expected %d columns, got %d", domain.ErrMalformedRecord, feedColumns, len(rec))
	}

	registry, err := domain.ParseAssignmentClass(rec[0])
	if err != nil || registry != class {
		return domain.Assignment{}, fmt.Errorf("%w: registry %q in %s feed", domain.ErrMalformedRecord, rec[0], class)
	}

	name := strings.TrimSpace(rec[2])
	if strings.EqualFold(name, placeholderOrganization) {
		return domain.Assignment{}, errPlaceholder
	}
	if name == "" {
		return domain.Assignment{}, fmt.Errorf("%w: empty organization name", domain.ErrMalformedRecord)
	}

	prefix, err := parsePrefix(class, rec[1])
	if err != nil {
		return domain.Assignment{}, err
	}

	start, end, err := class.BlockFor(prefix)
	if err != nil {
		return domain.Assignment{}, fmt.Errorf("%w: %v", domain.ErrMalformedRecord, err)
	}

	return domain.Assignment{
		Class: class,
		Range: domain.MacRange{
			Start: start,
			End:   end,
			Organization: domain.Organization{
				Name:    name,
				Address: strings.TrimSpace(rec[3]),
			},
		},
	}, nil
}

// parsePrefix decodes the hex assignment column. At most one digit per
// four prefix bits is allowed.
func parsePrefix(class domain.AssignmentClass, s string) (uint64, error) {
	digits := strings.TrimSpace(s)
	if digits == "" {
		return 0, fmt.Errorf("%w: empty assignment prefix", domain.ErrMalformedRecord)
	}
	if limit := class.PrefixBits() / 4; len(digits) > limit {
		return 0, fmt.Errorf("%w: prefix %q longer than %d hex digits", domain.ErrMalformedRecord, digits, limit)
	}

	prefix, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: prefix %q is not hex", domain.ErrMalformedRecord, digits)
	}
	return prefix, nil
}
