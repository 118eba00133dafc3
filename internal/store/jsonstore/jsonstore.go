// Package jsonstore keeps the profile and history stores in two JSON files
// held by keshon/datastore, which saves them periodically and on Close.
//
// datastore decodes its file into untyped maps, which would lose the key
// order of group_interests, so loading reads the file directly and the
// datastore is seeded with the raw documents. With SyncWrites every write
// is made durable before it returns by closing the datastore, which saves
// synchronously, and opening it again.
package jsonstore

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/keshon/datastore"

	"github.com/edgard/groupmate/internal/errors"
	"github.com/edgard/groupmate/internal/memory"
)

// Profile store top-level keys.
const (
	keyUserData        = "user_data"
	keyGroupInterests  = "group_interests"
	keyActiveTopics    = "active_topics"
	keyBotMood         = "bot_mood"
	keyLastInteraction = "last_interaction"
)

const defaultAutoSave = 5 * time.Second

// Options configures Open.
type Options struct {
	ProfilePath      string
	HistoryPath      string
	AutoSaveInterval time.Duration
	// SyncWrites makes each Save durable before it returns. Without it a
	// save reaches disk on the next auto-save or on Close.
	SyncWrites bool
}

// Store is the two-file JSON backend.
type Store struct {
	profiles *file
	history  *file
	logger   *slog.Logger
}

type file struct {
	path     string
	interval time.Duration
	sync     bool
	log      *slog.Logger

	mu     sync.Mutex
	ds     *datastore.DataStore
	cancel context.CancelFunc
	keys   map[string]struct{}
	// openErr is set when the file existed but could not be parsed. It is
	// reported once, by the first load.
	openErr error
}

// Open opens or creates both files. A file that is not valid JSON is
// renamed aside so a fresh one can be started; the first load of that store
// then reports the problem.
func Open(opts Options, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	log := logger.With("component", "store", "backend", "json")

	if opts.AutoSaveInterval <= 0 {
		opts.AutoSaveInterval = defaultAutoSave
	}

	profiles, err := openFile(opts.ProfilePath, opts, log)
	if err != nil {
		return nil, err
	}
	history, err := openFile(opts.HistoryPath, opts, log)
	if err != nil {
		_ = profiles.close()
		return nil, err
	}

	log.Info("JSON store opened", "profiles", opts.ProfilePath, "history", opts.HistoryPath,
		"auto_save", opts.AutoSaveInterval, "sync_writes", opts.SyncWrites)
	return &Store{profiles: profiles, history: history, logger: log}, nil
}

func openFile(path string, opts Options, log *slog.Logger) (*file, error) {
	f := &file{
		path:     path,
		interval: opts.AutoSaveInterval,
		sync:     opts.SyncWrites,
		log:      log.With("file", path),
		keys:     make(map[string]struct{}),
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.NewStoreError("failed to create directory for "+path, err)
	}
	if err := f.setAsideIfCorrupt(); err != nil {
		return nil, err
	}
	if err := f.open(); err != nil {
		return nil, err
	}
	return f, nil
}

// setAsideIfCorrupt renames a file that is not a JSON object.
func (f *file) setAsideIfCorrupt() error {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.NewStoreError("failed to read "+f.path, err)
	}
	var top map[string]json.RawMessage
	decodeErr := json.Unmarshal(data, &top)
	if decodeErr == nil {
		return nil
	}

	aside := fmt.Sprintf("%s.corrupt-%d", f.path, time.Now().Unix())
	if err := os.Rename(f.path, aside); err != nil {
		return errors.NewStoreError("failed to move unreadable "+f.path+" aside", err)
	}
	f.log.Warn("Unreadable store file moved aside", "moved_to", aside, "error", decodeErr)
	f.openErr = errors.NewStoreError("unreadable "+f.path+", moved to "+aside, decodeErr)
	return nil
}

// open starts a datastore on the file and seeds it with the file's raw
// top-level values so saves keep their encoding. Callers hold f.mu or own f
// exclusively.
func (f *file) open() error {
	top, err := readTop(f.path)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	ds, err := datastore.New(ctx, f.path, datastore.WithSaveInterval(f.interval))
	if err != nil {
		cancel()
		return errors.NewStoreError("failed to open "+f.path, err)
	}
	for k, v := range top {
		ds.Set(k, v)
		f.keys[k] = struct{}{}
	}
	f.ds = ds
	f.cancel = cancel
	return nil
}

// close stops auto-save and writes the document. Callers hold f.mu or own
// f exclusively.
func (f *file) close() error {
	f.cancel()
	if err := f.ds.Close(); err != nil {
		return errors.NewStoreError("failed to save "+f.path, err)
	}
	return nil
}

func readTop(path string) (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) || (err == nil && len(data) == 0) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewStoreError("failed to read "+path, err)
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, errors.NewStoreError("failed to decode "+path, err)
	}
	return top, nil
}

// read decodes the file into dst.
func (f *file) read(dst any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.openErr; err != nil {
		f.openErr = nil
		return err
	}

	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) || (err == nil && len(data) == 0) {
		return nil
	}
	if err != nil {
		return errors.NewStoreError("failed to read "+f.path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return errors.NewStoreError("failed to decode "+f.path, err)
	}
	return nil
}

// write replaces the whole document with entries.
func (f *file) write(entries map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for k := range f.keys {
		if _, ok := entries[k]; ok {
			continue
		}
		if err := f.ds.Delete(k); err != nil {
			return errors.NewStoreError("failed to delete "+k+" from "+f.path, err)
		}
		delete(f.keys, k)
	}
	for k, v := range entries {
		f.ds.Set(k, v)
		f.keys[k] = struct{}{}
	}
	if !f.sync {
		return nil
	}

	if err := f.close(); err != nil {
		return err
	}
	return f.open()
}

// LoadProfiles reads the profile file.
func (s *Store) LoadProfiles(_ context.Context) (memory.ProfileState, error) {
	var st memory.ProfileState
	if err := s.profiles.read(&st); err != nil {
		return memory.ProfileState{}, err
	}
	return st, nil
}

// LoadHistory reads the history file.
func (s *Store) LoadHistory(_ context.Context) (memory.HistoryState, error) {
	st := memory.HistoryState{}
	if err := s.history.read(&st); err != nil {
		return memory.HistoryState{}, err
	}
	return st, nil
}

// SaveProfiles writes the profile document.
func (s *Store) SaveProfiles(_ context.Context, st memory.ProfileState) error {
	return s.profiles.write(map[string]any{
		keyUserData:        st.UserData,
		keyGroupInterests:  st.GroupInterests,
		keyActiveTopics:    st.ActiveTopics,
		keyBotMood:         st.BotMood,
		keyLastInteraction: st.LastInteraction,
	})
}

// SaveHistory writes the history document.
func (s *Store) SaveHistory(_ context.Context, st memory.HistoryState) error {
	entries := make(map[string]any, len(st))
	for ch, h := range st {
		entries[ch] = h
	}
	return s.history.write(entries)
}

// Close stops auto-save after a final write of both files.
func (s *Store) Close() error {
	var errs []error
	for _, f := range []*file{s.profiles, s.history} {
		f.mu.Lock()
		if err := f.close(); err != nil {
			errs = append(errs, err)
		}
		f.mu.Unlock()
	}
	if len(errs) > 0 {
		return errors.NewStoreError("failed to close store", stderrors.Join(errs...))
	}
	s.logger.Info("JSON store closed")
	return nil
}
