// Package remote abstracts the hierarchical object store local state is
// projected into. The reconciler only sees this interface; the Notion
// implementation lives behind it.
package remote

import (
	"context"
	"errors"
)

var (
	// ErrNotFound marks 404-class responses: the referenced remote object no
	// longer exists (deleted out-of-band).
	ErrNotFound = errors.New("remote object not found")
)

// Ref identifies a remote object (page, database, record). The zero Ref
// addresses the workspace root when used as a parent.
type Ref string

func (r Ref) IsZero() bool { return r == "" }

type ContainerKind string

const (
	KindPage     ContainerKind = "page"
	KindDatabase ContainerKind = "database"
)

type FieldKind string

const (
	FieldTitle    FieldKind = "title"
	FieldSelect   FieldKind = "select"
	FieldNumber   FieldKind = "number"
	FieldRichText FieldKind = "rich_text"
)

// FieldSpec declares one column of a database container.
type FieldSpec struct {
	Name    string
	Kind    FieldKind
	Options []string // select fields only
}

// Schema describes a container to provision.
type Schema struct {
	Title  string
	Kind   ContainerKind
	Fields []FieldSpec
}

// Block is an opaque content block appended to a page.
type Block struct {
	Heading   string
	Paragraph string
}

// Store is the remote projection API. Writes are immediately readable;
// optional record fields must be omitted rather than sent as nulls, which
// Properties enforces by construction.
type Store interface {
	CreateContainer(ctx context.Context, parent Ref, schema Schema) (Ref, error)
	CreateRecord(ctx context.Context, container Ref, props *Properties) (Ref, error)
	UpdateRecord(ctx context.Context, record Ref, props *Properties) error
	AppendBlocks(ctx context.Context, page Ref, blocks []Block) error
}
