package snfs

import (
	"encoding/json"
	"errors"

	"github.com/weberc2/snfs/pkg/filesystem"
	"github.com/weberc2/snfs/pkg/metadata"
	. "github.com/weberc2/snfs/pkg/types"
)

// Category classifies an engine error for callers that report status codes
// rather than messages.
type Category int

const (
	CategoryNone Category = iota
	CategoryMalformed
	CategoryNotFound
	CategoryWrongType
	CategoryAlreadyExists
	CategoryResourceExhausted
	CategoryInternal
)

const (
	NegativeOffsetErr ConstError = "negative offset"
)

var categories = []struct {
	category  Category
	sentinels []error
}{
	{
		category: CategoryMalformed,
		sentinels: []error{
			filesystem.MalformedPathErr,
			NotAbsolutePathErr,
			EmptyPathChunkErr,
			InvalidInoErr,
			InoNotInUseErr,
			NameTooLongErr,
			EmptyNameErr,
			InvalidNameErr,
			NegativeOffsetErr,
		},
	},
	{category: CategoryNotFound, sentinels: []error{NotFoundErr}},
	{
		category:  CategoryWrongType,
		sentinels: []error{NotADirErr, NotARegularFileErr},
	},
	{category: CategoryAlreadyExists, sentinels: []error{ExistsErr}},
	{
		category: CategoryResourceExhausted,
		sentinels: []error{
			OutOfInosErr,
			OutOfBlocksErr,
			FileTooLargeErr,
		},
	},
	{
		category: CategoryInternal,
		sentinels: []error{
			CorruptInodeErr,
			metadata.TooFewBlocksErr,
		},
	},
}

// CategoryOf returns the category of `err`. Corruption is checked before
// everything else so that a corrupt inode met during a walk is never
// reported as a caller mistake. Unrecognized errors are internal.
func CategoryOf(err error) Category {
	if err == nil {
		return CategoryNone
	}
	if errors.Is(err, CorruptInodeErr) {
		return CategoryInternal
	}
	for _, c := range categories {
		for _, sentinel := range c.sentinels {
			if errors.Is(err, sentinel) {
				return c.category
			}
		}
	}
	return CategoryInternal
}

func (c Category) String() string {
	switch c {
	case CategoryNone:
		return "none"
	case CategoryMalformed:
		return "malformed"
	case CategoryNotFound:
		return "not-found"
	case CategoryWrongType:
		return "wrong-type"
	case CategoryAlreadyExists:
		return "already-exists"
	case CategoryResourceExhausted:
		return "resource-exhausted"
	default:
		return "internal"
	}
}

func (c Category) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}
