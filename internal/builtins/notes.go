// ABOUTME: Notes provider exposes namespaced key-value storage as tools.
// ABOUTME: Missing notes surface as NotFound protocol errors.

package builtins

import (
	"context"
	"errors"

	"github.com/2389/coven-mcp/internal/mcp"
	"github.com/2389/coven-mcp/internal/store"
	"github.com/2389/coven-mcp/internal/tools"
)

// NotesProvider exposes a NoteStore.
type NotesProvider struct {
	store store.NoteStore
}

// NewNotesProvider creates the notes provider.
func NewNotesProvider(s store.NoteStore) *NotesProvider {
	return &NotesProvider{store: s}
}

// Name implements tools.Provider.
func (n *NotesProvider) Name() string { return "builtin:notes" }

// Tools implements tools.Provider.
func (n *NotesProvider) Tools() []tools.Tool {
	namespace := tools.Opt("namespace", store.DefaultNamespace)
	return []tools.Tool{
		{
			Method:  "SetNote",
			Doc:     "Stores a note, replacing any existing value for the key.",
			Params:  []tools.Param{tools.Arg[string]("key"), tools.Arg[string]("value"), namespace},
			Handler: n.set,
		},
		{
			Method:  "GetNote",
			Doc:     "Retrieves a note by key.",
			Params:  []tools.Param{tools.Arg[string]("key"), namespace},
			Handler: n.get,
		},
		{
			Method:  "ListNotes",
			Doc:     "Lists the note keys in a namespace.",
			Params:  []tools.Param{namespace},
			Handler: n.list,
		},
		{
			Method:  "DeleteNote",
			Doc:     "Deletes a note by key.",
			Params:  []tools.Param{tools.Arg[string]("key"), namespace},
			Handler: n.delete,
		},
		{
			Method: "ExportNotes",
			Doc: `Exports every note in a namespace as a key/value object.

Reports progress once per note.`,
			Params:  []tools.Param{namespace, tools.ProgressParam("progress")},
			Handler: n.export,
		},
	}
}

func (n *NotesProvider) set(ctx context.Context, args tools.Args) (any, error) {
	note := &store.Note{
		Namespace: args.String("namespace"),
		Key:       args.String("key"),
		Value:     args.String("value"),
	}
	if err := n.store.SetNote(ctx, note); err != nil {
		return nil, err
	}
	return map[string]string{"key": note.Key, "namespace": note.Namespace, "status": "saved"}, nil
}

func (n *NotesProvider) get(ctx context.Context, args tools.Args) (any, error) {
	key, ns := args.String("key"), args.String("namespace")
	note, err := n.store.GetNote(ctx, ns, key)
	if err != nil {
		return nil, notFound(err, key, ns)
	}
	return map[string]string{"key": note.Key, "value": note.Value}, nil
}

func (n *NotesProvider) list(ctx context.Context, args tools.Args) (any, error) {
	notes, err := n.store.ListNotes(ctx, args.String("namespace"))
	if err != nil {
		return nil, err
	}

	keys := make([]string, len(notes))
	for i, note := range notes {
		keys[i] = note.Key
	}
	return map[string]any{"keys": keys, "count": len(keys)}, nil
}

func (n *NotesProvider) delete(ctx context.Context, args tools.Args) (any, error) {
	key, ns := args.String("key"), args.String("namespace")
	if err := n.store.DeleteNote(ctx, ns, key); err != nil {
		return nil, notFound(err, key, ns)
	}
	return map[string]string{"key": key, "status": "deleted"}, nil
}

func (n *NotesProvider) export(ctx context.Context, args tools.Args) (any, error) {
	notes, err := n.store.ListNotes(ctx, args.String("namespace"))
	if err != nil {
		return nil, err
	}

	progress := args.Progress()
	total := float64(len(notes))
	out := make(map[string]string, len(notes))
	for i, note := range notes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[note.Key] = note.Value
		progress.Report(float64(i+1), total, note.Key)
	}
	return out, nil
}

func notFound(err error, key, namespace string) error {
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewError(mcp.CodeNotFound, "Note '%s' not found in namespace '%s'.", key, namespace)
	}
	return err
}
