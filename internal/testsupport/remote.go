package testsupport

import (
	"context"
	"fmt"
	"sync"

	"bindery/internal/services/remote"
)

// UploadRecord describes one upload the fake remote accepted.
type UploadRecord struct {
	FolderID string
	Filename string
	Size     int64
	ObjectID string
}

// FakeRemote is an in-memory remote store that records uploads and can be
// told to fail a number of upcoming calls.
type FakeRemote struct {
	mu             sync.Mutex
	uploads        []UploadRecord
	removed        []string
	failNext       int
	failRemoveNext int
}

func NewFakeRemote() *FakeRemote {
	return &FakeRemote{}
}

func (r *FakeRemote) Upload(_ context.Context, folderID, filename string, data []byte) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext > 0 {
		r.failNext--
		return "", fmt.Errorf("injected upload failure for %s", filename)
	}
	record := UploadRecord{
		FolderID: folderID,
		Filename: filename,
		Size:     int64(len(data)),
		ObjectID: fmt.Sprintf("obj-%s-%d", filename, len(r.uploads)+1),
	}
	r.uploads = append(r.uploads, record)
	return record.ObjectID, nil
}

func (r *FakeRemote) Remove(_ context.Context, objectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failRemoveNext > 0 {
		r.failRemoveNext--
		return fmt.Errorf("injected removal failure for %s", objectID)
	}
	r.removed = append(r.removed, objectID)
	return nil
}

// FailNextRemovals makes the next n Remove calls fail.
func (r *FakeRemote) FailNextRemovals(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failRemoveNext = n
}

// Removals returns the object IDs removed so far, in order.
func (r *FakeRemote) Removals() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.removed))
	copy(out, r.removed)
	return out
}

// FailNext makes the next n Upload calls fail.
func (r *FakeRemote) FailNext(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failNext = n
}

// Uploads returns a copy of the accepted upload records in order.
func (r *FakeRemote) Uploads() []UploadRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]UploadRecord, len(r.uploads))
	copy(out, r.uploads)
	return out
}

var _ remote.Store = (*FakeRemote)(nil)
