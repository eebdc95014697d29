package services

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/rolodex/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/rolodex/internal/core/domain"
	"github.com/custodia-labs/rolodex/internal/core/ports/driving"
)

// storageFixture wires a storage service to an in-memory store with a
// controllable clock.
type storageFixture struct {
	ctx     context.Context
	store   *memory.ObjectStore
	svc     *StorageService
	st      *domain.FolderStructure
	clock   time.Time
	counter int
}

func newStorageFixture(t *testing.T, settings domain.LoadSettings) *storageFixture {
	t.Helper()
	f := &storageFixture{
		ctx:   context.Background(),
		store: memory.NewObjectStore(),
		clock: time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC),
	}
	f.store.SetClock(f.tick)
	f.svc = NewStorageService(f.store, settings)
	f.svc.SetClock(f.tick)

	st, err := f.svc.EnsureFolderStructure(f.ctx, "rolodex")
	require.NoError(t, err)
	f.st = st
	return f
}

// tick advances the clock by a second on every call so modification
// times are distinct.
func (f *storageFixture) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *storageFixture) newRepo() *Repository {
	repo := NewRepository(nil, nil, domain.Options{})
	repo.SetClock(func() time.Time { return time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC) })
	repo.SetIDGenerator(func() string {
		f.counter++
		return "m" + domain.FormatContactID(f.counter)
	})
	return repo
}

func (f *storageFixture) read(t *testing.T, folderID, name string) []byte {
	t.Helper()
	objs, err := f.store.FindFile(f.ctx, folderID, name)
	require.NoError(t, err)
	require.Len(t, objs, 1, "expected exactly one %s", name)
	data, err := f.store.Download(f.ctx, objs[0].ID)
	require.NoError(t, err)
	return data
}

func (f *storageFixture) exists(t *testing.T, folderID, name string) bool {
	t.Helper()
	objs, err := f.store.FindFile(f.ctx, folderID, name)
	require.NoError(t, err)
	return len(objs) > 0
}

func seedRepo(t *testing.T, repo *Repository) {
	t.Helper()
	_, err := repo.AddContact(domain.Contact{
		Name:    "田中太郎",
		Company: "Tanaka Shoji",
		Emails:  []string{"taro@example.com"},
		Types:   []string{"Client"},
		Revenue: 1200000,
	})
	require.NoError(t, err)
	_, err = repo.AddContact(domain.Contact{
		Name:         "Jane Doe",
		Affiliations: []string{"Rotary"},
	})
	require.NoError(t, err)
	_, err = repo.AddContact(domain.Contact{Name: "No Meetings"})
	require.NoError(t, err)

	_, err = repo.AddMeeting(domain.Meeting{ContactID: "000001", Date: "2024-03-01", Content: "kickoff"})
	require.NoError(t, err)
	_, err = repo.AddMeeting(domain.Meeting{
		ContactID: "000002",
		Date:      "2024-03-02T10:30",
		Todos:     []domain.Todo{{Text: "send deck", DueDate: "2024-03-09"}},
	})
	require.NoError(t, err)
	_, err = repo.AddMeeting(domain.Meeting{ContactID: "000001", Date: "2024-03-15", Content: "follow-up"})
	require.NoError(t, err)
}

var equateEmpty = cmpopts.EquateEmpty()

func TestStorageService_NilStore(t *testing.T) {
	svc := NewStorageService(nil, domain.LoadSettings{})
	ctx := context.Background()

	_, err := svc.EnsureFolderStructure(ctx, "rolodex")
	assert.ErrorIs(t, err, domain.ErrNotImplemented)
	_, err = svc.LoadAll(ctx, "root")
	assert.ErrorIs(t, err, domain.ErrNotImplemented)
	assert.ErrorIs(t, svc.RebuildIndexesStrict(ctx, domain.FolderStructure{}), domain.ErrNotImplemented)
}

func TestStorageService_EnsureFolderStructure(t *testing.T) {
	f := newStorageFixture(t, domain.LoadSettings{Concurrency: 2})

	assert.NotEmpty(t, f.st.Root)
	for name, id := range map[string]string{
		"index":                f.st.Index,
		"contacts":             f.st.Contacts,
		"meetings":             f.st.Meetings,
		"attachments":          f.st.Attachments,
		"attachments/contacts": f.st.AttachmentsContacts,
		"attachments/meetings": f.st.AttachmentsMeetings,
	} {
		assert.NotEmpty(t, id, name)
	}
	assert.NotEqual(t, f.st.Contacts, f.st.AttachmentsContacts)

	created := f.store.Calls("CreateFolder")
	again, err := f.svc.EnsureFolderStructure(f.ctx, "rolodex")
	require.NoError(t, err)
	assert.Equal(t, *f.st, *again)
	assert.Equal(t, created, f.store.Calls("CreateFolder"), "second call must not create folders")
}

func TestStorageService_EnsureFolderStructure_EmptyName(t *testing.T) {
	svc := NewStorageService(memory.NewObjectStore(), domain.LoadSettings{})

	_, err := svc.EnsureFolderStructure(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStorageService_EnsureFolderStructure_DuplicateRootUsesOldest(t *testing.T) {
	ctx := context.Background()
	store := memory.NewObjectStore()
	first, err := store.CreateFolder(ctx, "", "rolodex")
	require.NoError(t, err)
	_, err = store.CreateFolder(ctx, "", "rolodex")
	require.NoError(t, err)

	st, err := NewStorageService(store, domain.LoadSettings{}).EnsureFolderStructure(ctx, "rolodex")
	require.NoError(t, err)
	assert.Equal(t, first.ID, st.Root)
}

func TestStorageService_Upsert(t *testing.T) {
	f := newStorageFixture(t, domain.LoadSettings{})

	first, err := f.svc.Upsert(f.ctx, f.st.Contacts, "contact-000009.json", []byte(`{"v":1}`))
	require.NoError(t, err)
	second, err := f.svc.Upsert(f.ctx, f.st.Contacts, "contact-000009.json", []byte(`{"v":2}`))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, `{"v":2}`, string(f.read(t, f.st.Contacts, "contact-000009.json")))
	assert.Equal(t, 1, f.store.Calls("CreateFile"))
}

func TestStorageService_Upsert_DuplicateNamesUpdatesOldest(t *testing.T) {
	f := newStorageFixture(t, domain.LoadSettings{})
	oldest, err := f.store.CreateFile(f.ctx, f.st.Contacts, "contact-000001.json", domain.JSONMimeType, []byte("a"))
	require.NoError(t, err)
	_, err = f.store.CreateFile(f.ctx, f.st.Contacts, "contact-000001.json", domain.JSONMimeType, []byte("b"))
	require.NoError(t, err)

	obj, err := f.svc.Upsert(f.ctx, f.st.Contacts, "contact-000001.json", []byte("c"))
	require.NoError(t, err)
	assert.Equal(t, oldest.ID, obj.ID)
}

func TestStorageService_SaveAllLoadAll_RoundTrip(t *testing.T) {
	f := newStorageFixture(t, domain.LoadSettings{Concurrency: 3})
	repo := f.newRepo()
	seedRepo(t, repo)

	require.NoError(t, f.svc.SaveAll(f.ctx, *f.st, repo))

	loaded, err := f.svc.LoadAll(f.ctx, f.st.Root)
	require.NoError(t, err)

	assert.Equal(t, driving.LoadSourceIndex, loaded.ContactsSource)
	assert.Equal(t, driving.LoadSourceIndex, loaded.MeetingsSource)
	assert.Zero(t, loaded.Skipped)
	assert.Equal(t, *f.st, loaded.Structure)

	if diff := cmp.Diff(repo.Contacts(), loaded.Contacts, equateEmpty); diff != "" {
		t.Errorf("contacts differ (-saved +loaded):\n%s", diff)
	}
	wantMeetings := append(repo.MeetingsFor("000001"), repo.MeetingsFor("000002")...)
	if diff := cmp.Diff(wantMeetings, loaded.Meetings, equateEmpty,
		cmpopts.SortSlices(func(a, b domain.Meeting) bool { return a.ID < b.ID })); diff != "" {
		t.Errorf("meetings differ (-saved +loaded):\n%s", diff)
	}
	if diff := cmp.Diff(repo.Options(), loaded.Options, equateEmpty); diff != "" {
		t.Errorf("options differ (-saved +loaded):\n%s", diff)
	}

	assert.False(t, f.exists(t, f.st.Meetings, "contact-000003-meetings.json"),
		"contacts without meetings get no meetings file")
}

func TestStorageService_SaveAll_MeetingsFileKeepsInsertionOrder(t *testing.T) {
	f := newStorageFixture(t, domain.LoadSettings{})
	repo := f.newRepo()
	seedRepo(t, repo)

	require.NoError(t, f.svc.SaveAll(f.ctx, *f.st, repo))

	var file domain.MeetingsFile
	require.NoError(t, json.Unmarshal(f.read(t, f.st.Meetings, "contact-000001-meetings.json"), &file))
	assert.Equal(t, "000001", file.ContactID)
	require.Len(t, file.Meetings, 2)
	assert.Equal(t, "kickoff", file.Meetings[0].Content)
	assert.Equal(t, "follow-up", file.Meetings[1].Content)
}

func TestStorageService_SaveAll_EmptiesStaleMeetingsFile(t *testing.T) {
	f := newStorageFixture(t, domain.LoadSettings{})
	repo := f.newRepo()
	seedRepo(t, repo)
	require.NoError(t, f.svc.SaveAll(f.ctx, *f.st, repo))

	for _, m := range repo.MeetingsFor("000002") {
		_, err := repo.RemoveMeeting(m.ID)
		require.NoError(t, err)
	}
	require.NoError(t, f.svc.SaveAll(f.ctx, *f.st, repo))

	var file domain.MeetingsFile
	require.NoError(t, json.Unmarshal(f.read(t, f.st.Meetings, "contact-000002-meetings.json"), &file))
	assert.Empty(t, file.Meetings)
}

func TestStorageService_SaveAll_WritesMetadata(t *testing.T) {
	f := newStorageFixture(t, domain.LoadSettings{})
	repo := f.newRepo()
	_, err := repo.AddOption(domain.OptionIndustryInterests, "Fintech")
	require.NoError(t, err)

	require.NoError(t, f.svc.SaveAll(f.ctx, *f.st, repo))

	var meta domain.Metadata
	require.NoError(t, json.Unmarshal(f.read(t, f.st.Index, domain.MetadataFile), &meta))
	assert.Equal(t, domain.MetadataSchemaVersion, meta.SchemaVersion)
	assert.Equal(t, []string{"Fintech"}, meta.Options.IndustryInterests)
	assert.NotNil(t, meta.Options.Types)
	assert.False(t, meta.SavedAt.IsZero())
}

func TestStorageService_SaveAll_InvalidContactIDReported(t *testing.T) {
	f := newStorageFixture(t, domain.LoadSettings{})
	data := staticDataset{contacts: []domain.Contact{{ID: "../evil", Name: "x"}, {ID: "000001", Name: "ok"}}}

	err := f.svc.SaveAll(f.ctx, *f.st, data)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.True(t, f.exists(t, f.st.Contacts, "contact-000001.json"))
}

func TestStorageService_NewContactScenario(t *testing.T) {
	f := newStorageFixture(t, domain.LoadSettings{})
	repo := f.newRepo()

	c, err := repo.AddContact(domain.Contact{Name: "田中太郎"})
	require.NoError(t, err)
	assert.Equal(t, "000001", c.ID)

	require.NoError(t, f.svc.SaveContact(f.ctx, *f.st, repo, c.ID))

	var stored domain.Contact
	require.NoError(t, json.Unmarshal(f.read(t, f.st.Contacts, "contact-000001.json"), &stored))
	assert.Equal(t, "田中太郎", stored.Name)

	var idx domain.ContactsIndex
	require.NoError(t, json.Unmarshal(f.read(t, f.st.Index, domain.ContactsIndexFile), &idx))
	require.Len(t, idx.Entries, 1)
	assert.Equal(t, "000001", idx.Entries[0].ID)
	assert.False(t, idx.Entries[0].LastModified.IsZero())
}

func TestStorageService_SecondSaveWins(t *testing.T) {
	f := newStorageFixture(t, domain.LoadSettings{})
	repo := f.newRepo()

	c, err := repo.AddContact(domain.Contact{Name: "Jane Doe", Revenue: 100})
	require.NoError(t, err)
	require.NoError(t, f.svc.SaveContact(f.ctx, *f.st, repo, c.ID))

	c.Revenue = 250
	_, err = repo.UpdateContact(c)
	require.NoError(t, err)
	require.NoError(t, f.svc.SaveContact(f.ctx, *f.st, repo, c.ID))

	objs, err := f.store.ListFiles(f.ctx, f.st.Contacts)
	require.NoError(t, err)
	assert.Len(t, objs, 1)

	loaded, err := f.svc.LoadAll(f.ctx, f.st.Root)
	require.NoError(t, err)
	require.Len(t, loaded.Contacts, 1)
	assert.Equal(t, float64(250), loaded.Contacts[0].Revenue)
}

func TestStorageService_SaveContact_Unknown(t *testing.T) {
	f := newStorageFixture(t, domain.LoadSettings{})

	err := f.svc.SaveContact(f.ctx, *f.st, f.newRepo(), "000042")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStorageService_DeleteContact(t *testing.T) {
	f := newStorageFixture(t, domain.LoadSettings{})
	repo := f.newRepo()
	seedRepo(t, repo)
	require.NoError(t, f.svc.SaveAll(f.ctx, *f.st, repo))

	require.NoError(t, f.svc.DeleteContact(f.ctx, *f.st, repo, "000001"))

	assert.False(t, f.exists(t, f.st.Contacts, "contact-000001.json"))
	assert.False(t, f.exists(t, f.st.Meetings, "contact-000001-meetings.json"))
	assert.Empty(t, repo.MeetingsFor("000001"))

	var idx domain.ContactsIndex
	require.NoError(t, json.Unmarshal(f.read(t, f.st.Index, domain.ContactsIndexFile), &idx))
	for _, e := range idx.Entries {
		assert.NotEqual(t, "000001", e.ID)
	}

	loaded, err := f.svc.LoadAll(f.ctx, f.st.Root)
	require.NoError(t, err)
	assert.Len(t, loaded.Contacts, 2)
	for _, m := range loaded.Meetings {
		assert.NotEqual(t, "000001", m.ContactID)
	}
}

func TestStorageService_DeleteContactFiles_MissingFilesIsFine(t *testing.T) {
	f := newStorageFixture(t, domain.LoadSettings{})

	assert.NoError(t, f.svc.DeleteContactFiles(f.ctx, *f.st, "000404"))
}

func TestStorageService_RebuildIndexes_Idempotent(t *testing.T) {
	f := newStorageFixture(t, domain.LoadSettings{})
	repo := f.newRepo()
	seedRepo(t, repo)
	require.NoError(t, f.svc.SaveAll(f.ctx, *f.st, repo))

	require.NoError(t, f.svc.RebuildIndexesStrict(f.ctx, *f.st))
	contacts1 := f.read(t, f.st.Index, domain.ContactsIndexFile)
	meetings1 := f.read(t, f.st.Index, domain.MeetingsIndexFile)

	require.NoError(t, f.svc.RebuildIndexesStrict(f.ctx, *f.st))
	assert.Equal(t, contacts1, f.read(t, f.st.Index, domain.ContactsIndexFile))
	assert.Equal(t, meetings1, f.read(t, f.st.Index, domain.MeetingsIndexFile))

	var idx domain.ContactsIndex
	require.NoError(t, json.Unmarshal(contacts1, &idx))
	ids := make([]string, 0, len(idx.Entries))
	for _, e := range idx.Entries {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"000001", "000002", "000003"}, ids)

	var midx domain.MeetingsIndex
	require.NoError(t, json.Unmarshal(meetings1, &midx))
	assert.Len(t, midx.Entries, 2)
}

func TestStorageService_RebuildIndexes_IgnoresForeignFiles(t *testing.T) {
	f := newStorageFixture(t, domain.LoadSettings{})
	_, err := f.store.CreateFile(f.ctx, f.st.Contacts, "notes.txt", "text/plain", []byte("hi"))
	require.NoError(t, err)
	_, err = f.store.CreateFile(f.ctx, f.st.Contacts, "contact-000007.json", domain.JSONMimeType, []byte(`{}`))
	require.NoError(t, err)

	require.NoError(t, f.svc.RebuildIndexesStrict(f.ctx, *f.st))

	var idx domain.ContactsIndex
	require.NoError(t, json.Unmarshal(f.read(t, f.st.Index, domain.ContactsIndexFile), &idx))
	require.Len(t, idx.Entries, 1)
	assert.Equal(t, "000007", idx.Entries[0].ID)
}

func TestStorageService_RebuildIndexes_EmptyFoldersWriteEmptyArrays(t *testing.T) {
	f := newStorageFixture(t, domain.LoadSettings{})

	require.NoError(t, f.svc.RebuildIndexesStrict(f.ctx, *f.st))

	assert.JSONEq(t, `{"entries":[]}`, string(f.read(t, f.st.Index, domain.ContactsIndexFile)))
	assert.JSONEq(t, `{"entries":[]}`, string(f.read(t, f.st.Index, domain.MeetingsIndexFile)))
}

func TestStorageService_LoadAll_WithoutIndex(t *testing.T) {
	f := newStorageFixture(t, domain.LoadSettings{Concurrency: 2})
	repo := f.newRepo()
	seedRepo(t, repo)
	require.NoError(t, f.svc.SaveAll(f.ctx, *f.st, repo))

	for _, name := range []string{domain.ContactsIndexFile, domain.MeetingsIndexFile} {
		objs, err := f.store.FindFile(f.ctx, f.st.Index, name)
		require.NoError(t, err)
		for _, o := range objs {
			require.NoError(t, f.store.Delete(f.ctx, o.ID))
		}
	}

	loaded, err := f.svc.LoadAll(f.ctx, f.st.Root)
	require.NoError(t, err)
	assert.Equal(t, driving.LoadSourceListing, loaded.ContactsSource)
	assert.Equal(t, driving.LoadSourceListing, loaded.MeetingsSource)
	if diff := cmp.Diff(repo.Contacts(), loaded.Contacts, equateEmpty); diff != "" {
		t.Errorf("contacts differ (-saved +loaded):\n%s", diff)
	}
	assert.Len(t, loaded.Meetings, 3)
}

func TestStorageService_LoadAll_IDEndingInMeetings(t *testing.T) {
	f := newStorageFixture(t, domain.LoadSettings{})
	repo := f.newRepo()
	_, err := repo.AddContact(domain.Contact{ID: "board-meetings", Name: "Board"})
	require.NoError(t, err)
	_, err = repo.AddContact(domain.Contact{Name: "Jane Doe"})
	require.NoError(t, err)
	_, err = repo.AddMeeting(domain.Meeting{ContactID: "board-meetings", Date: "2024-03-01"})
	require.NoError(t, err)

	require.NoError(t, f.svc.SaveAll(f.ctx, *f.st, repo))
	assert.True(t, f.exists(t, f.st.Contacts, "contact-board-meetings.json"))
	assert.True(t, f.exists(t, f.st.Meetings, "contact-board-meetings-meetings.json"))

	loaded, err := f.svc.LoadAll(f.ctx, f.st.Root)
	require.NoError(t, err)
	assert.Equal(t, driving.LoadSourceIndex, loaded.ContactsSource)
	assert.ElementsMatch(t, []string{"board-meetings", "000001"}, contactIDs(loaded.Contacts))
	require.Len(t, loaded.Meetings, 1)
	assert.Equal(t, "board-meetings", loaded.Meetings[0].ContactID)

	objs, err := f.store.FindFile(f.ctx, f.st.Index, domain.ContactsIndexFile)
	require.NoError(t, err)
	for _, o := range objs {
		require.NoError(t, f.store.Delete(f.ctx, o.ID))
	}

	loaded, err = f.svc.LoadAll(f.ctx, f.st.Root)
	require.NoError(t, err)
	assert.Equal(t, driving.LoadSourceListing, loaded.ContactsSource)
	assert.ElementsMatch(t, []string{"board-meetings", "000001"}, contactIDs(loaded.Contacts))
}

func contactIDs(contacts []domain.Contact) []string {
	ids := make([]string, len(contacts))
	for i := range contacts {
		ids[i] = contacts[i].ID
	}
	return ids
}

func TestStorageService_LoadAll_IndexFallbacks(t *testing.T) {
	tests := []struct {
		name  string
		index string
	}{
		{"empty index", `{"entries":[]}`},
		{"corrupt index", `{"entries":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newStorageFixture(t, domain.LoadSettings{})
			repo := f.newRepo()
			seedRepo(t, repo)
			require.NoError(t, f.svc.SaveAll(f.ctx, *f.st, repo))

			_, err := f.svc.Upsert(f.ctx, f.st.Index, domain.ContactsIndexFile, []byte(tt.index))
			require.NoError(t, err)

			loaded, err := f.svc.LoadAll(f.ctx, f.st.Root)
			require.NoError(t, err)
			assert.Equal(t, driving.LoadSourceListing, loaded.ContactsSource)
			assert.Len(t, loaded.Contacts, 3)
		})
	}
}

func TestStorageService_LoadAll_VerifyIndexAlwaysLists(t *testing.T) {
	f := newStorageFixture(t, domain.LoadSettings{VerifyIndex: true})
	repo := f.newRepo()
	seedRepo(t, repo)
	require.NoError(t, f.svc.SaveAll(f.ctx, *f.st, repo))

	// A contact written behind the index's back is still found.
	_, err := f.svc.Upsert(f.ctx, f.st.Contacts, "contact-000010.json", []byte(`{"id":"000010","name":"Late"}`))
	require.NoError(t, err)

	loaded, err := f.svc.LoadAll(f.ctx, f.st.Root)
	require.NoError(t, err)
	assert.Equal(t, driving.LoadSourceListing, loaded.ContactsSource)
	assert.Len(t, loaded.Contacts, 4)
}

func TestStorageService_LoadAll_StaleIndexEntrySkipped(t *testing.T) {
	f := newStorageFixture(t, domain.LoadSettings{})
	repo := f.newRepo()
	seedRepo(t, repo)
	require.NoError(t, f.svc.SaveAll(f.ctx, *f.st, repo))

	objs, err := f.store.FindFile(f.ctx, f.st.Contacts, "contact-000002.json")
	require.NoError(t, err)
	require.NoError(t, f.store.Delete(f.ctx, objs[0].ID))

	loaded, err := f.svc.LoadAll(f.ctx, f.st.Root)
	require.NoError(t, err)
	assert.Equal(t, driving.LoadSourceIndex, loaded.ContactsSource)
	assert.Len(t, loaded.Contacts, 2)
}

func TestStorageService_LoadAll_SkipsUnparseableFiles(t *testing.T) {
	f := newStorageFixture(t, domain.LoadSettings{})
	repo := f.newRepo()
	seedRepo(t, repo)
	require.NoError(t, f.svc.SaveAll(f.ctx, *f.st, repo))

	_, err := f.svc.Upsert(f.ctx, f.st.Contacts, "contact-000002.json", []byte(`{not json`))
	require.NoError(t, err)

	loaded, err := f.svc.LoadAll(f.ctx, f.st.Root)
	require.NoError(t, err)
	assert.Len(t, loaded.Contacts, 2)
	assert.Equal(t, 1, loaded.Skipped)
}

func TestStorageService_LoadAll_FillsIDsFromFileNames(t *testing.T) {
	f := newStorageFixture(t, domain.LoadSettings{})
	_, err := f.svc.Upsert(f.ctx, f.st.Contacts, "contact-000005.json", []byte(`{"name":"Anon","types":["VIP"]}`))
	require.NoError(t, err)
	_, err = f.svc.Upsert(f.ctx, f.st.Meetings, "contact-000005-meetings.json",
		[]byte(`{"meetings":[{"id":"m1","date":"2024-01-01"}]}`))
	require.NoError(t, err)

	loaded, err := f.svc.LoadAll(f.ctx, f.st.Root)
	require.NoError(t, err)
	require.Len(t, loaded.Contacts, 1)
	assert.Equal(t, "000005", loaded.Contacts[0].ID)
	require.Len(t, loaded.Meetings, 1)
	assert.Equal(t, "000005", loaded.Meetings[0].ContactID)
	assert.Equal(t, []string{"VIP"}, loaded.Options.Types, "options grow from contact tags")
}

func TestStorageService_LoadAll_OptionsDeduped(t *testing.T) {
	f := newStorageFixture(t, domain.LoadSettings{})
	_, err := f.svc.Upsert(f.ctx, f.st.Index, domain.MetadataFile,
		[]byte(`{"schemaVersion":1,"options":{"types":["Client","ｃｌｉｅｎｔ"," CLIENT "]}}`))
	require.NoError(t, err)
	_, err = f.svc.Upsert(f.ctx, f.st.Contacts, "contact-000001.json",
		[]byte(`{"id":"000001","name":"A","types":["client"]}`))
	require.NoError(t, err)

	loaded, err := f.svc.LoadAll(f.ctx, f.st.Root)
	require.NoError(t, err)
	assert.Equal(t, []string{"Client"}, loaded.Options.Types)
}

func TestStorageService_LoadAll_DuplicateContactKeepsNewest(t *testing.T) {
	f := newStorageFixture(t, domain.LoadSettings{})
	_, err := f.store.CreateFile(f.ctx, f.st.Contacts, "contact-000001.json", domain.JSONMimeType,
		[]byte(`{"id":"000001","name":"Old","updatedAt":"2024-01-01T00:00:00Z"}`))
	require.NoError(t, err)
	_, err = f.store.CreateFile(f.ctx, f.st.Contacts, "contact-000001.json", domain.JSONMimeType,
		[]byte(`{"id":"000001","name":"New","updatedAt":"2024-02-01T00:00:00Z"}`))
	require.NoError(t, err)

	loaded, err := f.svc.LoadAll(f.ctx, f.st.Root)
	require.NoError(t, err)
	require.Len(t, loaded.Contacts, 1)
	assert.Equal(t, "New", loaded.Contacts[0].Name)
}

func TestStorageService_LoadAll_Cancelled(t *testing.T) {
	f := newStorageFixture(t, domain.LoadSettings{})
	repo := f.newRepo()
	seedRepo(t, repo)
	require.NoError(t, f.svc.SaveAll(f.ctx, *f.st, repo))

	ctx, cancel := context.WithCancel(f.ctx)
	cancel()

	_, err := f.svc.LoadAll(ctx, f.st.Root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStorageService_UploadAttachment(t *testing.T) {
	f := newStorageFixture(t, domain.LoadSettings{})
	path := filepath.Join(t.TempDir(), "card.txt")
	require.NoError(t, os.WriteFile(path, []byte("business card text"), 0o600))

	att, err := f.svc.UploadAttachment(f.ctx, *f.st, driving.AttachmentOwner{ContactName: "田中/太郎"}, path)
	require.NoError(t, err)
	assert.Equal(t, "card.txt", att.Name)
	assert.Equal(t, domain.FileRefDrive, att.Ref.Kind())

	folders, err := f.store.FindFolder(f.ctx, f.st.AttachmentsContacts, "田中_太郎")
	require.NoError(t, err)
	require.Len(t, folders, 1)

	files, err := f.store.FindFile(f.ctx, folders[0].ID, "card.txt")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "text/plain; charset=utf-8", files[0].MimeType)

	// Re-uploading replaces in place.
	again, err := f.svc.UploadAttachment(f.ctx, *f.st, driving.AttachmentOwner{ContactName: "田中/太郎"}, path)
	require.NoError(t, err)
	assert.Equal(t, att.Ref, again.Ref)
}

func TestStorageService_UploadAttachment_Meeting(t *testing.T) {
	f := newStorageFixture(t, domain.LoadSettings{})
	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# notes"), 0o600))

	_, err := f.svc.UploadAttachment(f.ctx, *f.st, driving.AttachmentOwner{MeetingID: "m-1"}, path)
	require.NoError(t, err)

	folders, err := f.store.FindFolder(f.ctx, f.st.AttachmentsMeetings, "m-1")
	require.NoError(t, err)
	assert.Len(t, folders, 1)
}

func TestStorageService_UploadAttachment_Errors(t *testing.T) {
	f := newStorageFixture(t, domain.LoadSettings{})

	_, err := f.svc.UploadAttachment(f.ctx, *f.st, driving.AttachmentOwner{}, "x")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.UploadAttachment(f.ctx, *f.st, driving.AttachmentOwner{MeetingID: "../x"}, "x")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.UploadAttachment(f.ctx, *f.st, driving.AttachmentOwner{MeetingID: "m1"},
		filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// staticDataset serves fixed collections without repository validation.
type staticDataset struct {
	contacts []domain.Contact
	meetings []domain.Meeting
	options  domain.Options
}

func (d staticDataset) Contacts() []domain.Contact { return d.contacts }
func (d staticDataset) Meetings() []domain.Meeting { return d.meetings }
func (d staticDataset) Options() domain.Options    { return d.options }
