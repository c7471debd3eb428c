package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jomei/notionapi"
)

// Compile-time interface check
var _ Store = (*NotionStore)(nil)

// NotionStore projects containers and records into the Notion workspace a
// user granted during connect. One store per user token.
type NotionStore struct {
	client *notionapi.Client
}

func NewNotionStore(accessToken string) *NotionStore {
	return &NotionStore{client: notionapi.NewClient(notionapi.Token(accessToken))}
}

func (s *NotionStore) CreateContainer(ctx context.Context, parent Ref, schema Schema) (Ref, error) {
	switch schema.Kind {
	case KindPage:
		return s.createPage(ctx, parent, schema.Title)
	case KindDatabase:
		return s.createDatabase(ctx, parent, schema)
	default:
		return "", fmt.Errorf("unsupported container kind %q", schema.Kind)
	}
}

func (s *NotionStore) createPage(ctx context.Context, parent Ref, title string) (Ref, error) {
	req := &notionapi.PageCreateRequest{
		Properties: notionapi.Properties{
			"title": notionapi.TitleProperty{
				Title: richText(title),
			},
		},
	}
	if parent.IsZero() {
		req.Parent = notionapi.Parent{Type: notionapi.ParentTypeWorkspace, Workspace: true}
	} else {
		req.Parent = notionapi.Parent{Type: notionapi.ParentTypePageID, PageID: notionapi.PageID(parent)}
	}

	page, err := s.client.Page.Create(ctx, req)
	if err != nil {
		return "", wrapNotionErr("create page", err)
	}
	return Ref(page.ID.String()), nil
}

func (s *NotionStore) createDatabase(ctx context.Context, parent Ref, schema Schema) (Ref, error) {
	if parent.IsZero() {
		return "", fmt.Errorf("database %q requires a parent page", schema.Title)
	}

	configs := notionapi.PropertyConfigs{}
	for _, field := range schema.Fields {
		switch field.Kind {
		case FieldTitle:
			configs[field.Name] = notionapi.TitlePropertyConfig{
				Type: notionapi.PropertyConfigTypeTitle,
			}
		case FieldSelect:
			options := make([]notionapi.Option, 0, len(field.Options))
			for _, opt := range field.Options {
				options = append(options, notionapi.Option{Name: opt})
			}
			configs[field.Name] = notionapi.SelectPropertyConfig{
				Type:   notionapi.PropertyConfigTypeSelect,
				Select: notionapi.Select{Options: options},
			}
		case FieldNumber:
			configs[field.Name] = notionapi.NumberPropertyConfig{
				Type: notionapi.PropertyConfigTypeNumber,
			}
		case FieldRichText:
			configs[field.Name] = notionapi.RichTextPropertyConfig{
				Type: notionapi.PropertyConfigTypeRichText,
			}
		default:
			return "", fmt.Errorf("unsupported field kind %q for %q", field.Kind, field.Name)
		}
	}

	db, err := s.client.Database.Create(ctx, &notionapi.DatabaseCreateRequest{
		Parent:     notionapi.Parent{Type: notionapi.ParentTypePageID, PageID: notionapi.PageID(parent)},
		Title:      richText(schema.Title),
		Properties: configs,
	})
	if err != nil {
		return "", wrapNotionErr("create database", err)
	}
	return Ref(db.ID.String()), nil
}

func (s *NotionStore) CreateRecord(ctx context.Context, container Ref, props *Properties) (Ref, error) {
	page, err := s.client.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent:     notionapi.Parent{Type: notionapi.ParentTypeDatabaseID, DatabaseID: notionapi.DatabaseID(container)},
		Properties: notionProperties(props),
	})
	if err != nil {
		return "", wrapNotionErr("create record", err)
	}
	return Ref(page.ID.String()), nil
}

func (s *NotionStore) UpdateRecord(ctx context.Context, record Ref, props *Properties) error {
	_, err := s.client.Page.Update(ctx, notionapi.PageID(record), &notionapi.PageUpdateRequest{
		Properties: notionProperties(props),
	})
	if err != nil {
		return wrapNotionErr("update record", err)
	}
	return nil
}

func (s *NotionStore) AppendBlocks(ctx context.Context, page Ref, blocks []Block) error {
	children := make(notionapi.Blocks, 0, len(blocks)*2)
	for _, b := range blocks {
		if b.Heading != "" {
			children = append(children, &notionapi.Heading2Block{
				BasicBlock: notionapi.BasicBlock{
					Object: notionapi.ObjectTypeBlock,
					Type:   notionapi.BlockTypeHeading2,
				},
				Heading2: notionapi.Heading{RichText: richText(b.Heading)},
			})
		}
		if b.Paragraph != "" {
			children = append(children, &notionapi.ParagraphBlock{
				BasicBlock: notionapi.BasicBlock{
					Object: notionapi.ObjectTypeBlock,
					Type:   notionapi.BlockTypeParagraph,
				},
				Paragraph: notionapi.Paragraph{RichText: richText(b.Paragraph)},
			})
		}
	}

	_, err := s.client.Block.AppendChildren(ctx, notionapi.BlockID(page), &notionapi.AppendBlockChildrenRequest{
		Children: children,
	})
	if err != nil {
		return wrapNotionErr("append blocks", err)
	}
	return nil
}

// notionProperties converts the builder payload into the wire shape. Only
// emitted fields appear, so Notion never sees an explicit null.
func notionProperties(props *Properties) notionapi.Properties {
	out := notionapi.Properties{}
	for _, name := range props.Fields() {
		v, _ := props.Get(name)
		switch v.Kind {
		case FieldTitle:
			out[name] = notionapi.TitleProperty{Title: richText(v.Text)}
		case FieldSelect:
			out[name] = notionapi.SelectProperty{Select: notionapi.Option{Name: v.Text}}
		case FieldNumber:
			out[name] = notionapi.NumberProperty{Number: v.Number}
		case FieldRichText:
			out[name] = notionapi.RichTextProperty{RichText: richText(v.Text)}
		}
	}
	return out
}

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{Text: &notionapi.Text{Content: content}},
	}
}

func wrapNotionErr(op string, err error) error {
	var apiErr *notionapi.Error
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
