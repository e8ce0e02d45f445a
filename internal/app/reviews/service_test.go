package reviews

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/hsu0403/hcast-backend/internal/app"
	"github.com/hsu0403/hcast-backend/internal/auth"
	"github.com/hsu0403/hcast-backend/internal/store"
)

// memStore keeps podcasts and reviews in memory and mimics the cascade
// behaviour of the reviews table.
type memStore struct {
	ratings map[int64]int
	reviews map[int64]store.Review
	nextID  int64

	writes       int
	ratingErr    error
	lastExcluded int64
}

func newMemStore(podcastIDs ...int64) *memStore {
	m := &memStore{ratings: map[int64]int{}, reviews: map[int64]store.Review{}}
	for _, id := range podcastIDs {
		m.ratings[id] = 0
	}
	return m
}

func (m *memStore) PodcastExists(_ context.Context, id int64) (bool, error) {
	_, ok := m.ratings[id]
	return ok, nil
}

func (m *memStore) ReviewByID(_ context.Context, id int64) (store.Review, error) {
	r, ok := m.reviews[id]
	if !ok {
		return store.Review{}, store.ErrNotFound
	}
	return r, nil
}

func (m *memStore) CreateReview(_ context.Context, r store.Review) (int64, error) {
	m.nextID++
	r.ID = m.nextID
	m.reviews[r.ID] = r
	m.writes++
	return r.ID, nil
}

func (m *memStore) sorted(keep func(store.Review) bool) []store.Review {
	var out []store.Review
	for _, r := range m.reviews {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memStore) ListTopLevelReviews(_ context.Context, podcastID int64, page, size int) ([]store.Review, int, error) {
	top := m.sorted(func(r store.Review) bool { return r.PodcastID == podcastID && !r.IsReply() })
	// newest first
	for i, j := 0, len(top)-1; i < j; i, j = i+1, j-1 {
		top[i], top[j] = top[j], top[i]
	}
	total := len(top)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	out := top[start:end]
	for i := range out {
		parentID := out[i].ID
		out[i].ChildReviews = m.sorted(func(r store.Review) bool {
			return r.ParentReviewID != nil && *r.ParentReviewID == parentID
		})
	}
	return out, total, nil
}

func (m *memStore) ListChildReviews(_ context.Context, podcastID int64) ([]store.Review, error) {
	return m.sorted(func(r store.Review) bool { return r.PodcastID == podcastID && r.IsReply() }), nil
}

func (m *memStore) UpdateReviewText(_ context.Context, id int64, text string) error {
	r, ok := m.reviews[id]
	if !ok {
		return store.ErrNotFound
	}
	r.Text = text
	m.reviews[id] = r
	m.writes++
	return nil
}

func (m *memStore) DeleteReview(_ context.Context, id int64) error {
	if _, ok := m.reviews[id]; !ok {
		return store.ErrNotFound
	}
	m.writes++
	m.cascade(id)
	return nil
}

func (m *memStore) cascade(id int64) {
	delete(m.reviews, id)
	for childID, r := range m.reviews {
		if r.ParentReviewID != nil && *r.ParentReviewID == id {
			m.cascade(childID)
		}
	}
}

func (m *memStore) UpdatePodcastRating(_ context.Context, podcastID, excludeReviewID int64, compute func([]int) int) (int, error) {
	if m.ratingErr != nil {
		return 0, m.ratingErr
	}
	if _, ok := m.ratings[podcastID]; !ok {
		return 0, store.ErrNotFound
	}
	m.lastExcluded = excludeReviewID
	var existing []int
	for _, r := range m.sorted(func(r store.Review) bool { return r.PodcastID == podcastID && r.ID != excludeReviewID }) {
		existing = append(existing, r.Rating)
	}
	m.ratings[podcastID] = compute(existing)
	return m.ratings[podcastID], nil
}

func intPtr(v int) *int { return &v }
func idPtr(v int64) *int64 { return &v }

var (
	userA = &auth.Actor{ID: 1, Role: store.RoleListener}
	userB = &auth.Actor{ID: 2, Role: store.RoleListener}
)

func assertKind(t *testing.T, err error, want app.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	if got := app.KindOf(err); got != want {
		t.Fatalf("expected kind %v, got %v (%v)", want, got, err)
	}
}

func TestCreateFirstRatedReviewSetsRating(t *testing.T) {
	for _, name := range []string{"mean", "literal"} {
		t.Run(name, func(t *testing.T) {
			formula, err := FormulaByName(name)
			if err != nil {
				t.Fatalf("FormulaByName: %v", err)
			}
			m := newMemStore(10)
			svc := New(m, formula)

			id, err := svc.Create(context.Background(), userA, CreateInput{PodcastID: 10, Text: "Great show", Rating: intPtr(5)})
			if err != nil {
				t.Fatalf("Create error: %v", err)
			}
			if m.reviews[id].Rating != 5 {
				t.Fatalf("expected stored rating 5, got %d", m.reviews[id].Rating)
			}
			if m.ratings[10] != 5 {
				t.Fatalf("expected podcast rating 5 with no prior reviews, got %d", m.ratings[10])
			}
			if m.lastExcluded != id {
				t.Fatalf("expected new review %d excluded from existing set, got %d", id, m.lastExcluded)
			}
		})
	}
}

func TestCreateReplyDefaultsRatingAndPartitions(t *testing.T) {
	m := newMemStore(10)
	svc := New(m, nil)
	ctx := context.Background()

	parentID, err := svc.Create(ctx, userA, CreateInput{PodcastID: 10, Text: "Great show", Rating: intPtr(4)})
	if err != nil {
		t.Fatalf("Create parent error: %v", err)
	}
	replyID, err := svc.Create(ctx, userB, CreateInput{PodcastID: 10, Text: "Nice", ParentReviewID: idPtr(parentID)})
	if err != nil {
		t.Fatalf("Create reply error: %v", err)
	}

	reply := m.reviews[replyID]
	if reply.Rating != 0 || reply.ParentReviewID == nil || *reply.ParentReviewID != parentID {
		t.Fatalf("unexpected reply %#v", reply)
	}
	if m.ratings[10] != 4 {
		t.Fatalf("unrated reply must not change rating, got %d", m.ratings[10])
	}

	page, err := svc.List(ctx, 10, 1)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	for _, r := range page.Reviews {
		if r.IsReply() {
			t.Fatalf("top-level page contains reply %d", r.ID)
		}
	}
	if len(page.Reviews) != 1 || len(page.Reviews[0].ChildReviews) != 1 || page.Reviews[0].ChildReviews[0].ID != replyID {
		t.Fatalf("expected reply nested under parent, got %#v", page.Reviews)
	}

	replies, err := svc.ListReplies(ctx, 10)
	if err != nil {
		t.Fatalf("ListReplies error: %v", err)
	}
	if len(replies.Reviews) != 1 || replies.Reviews[0].ID != replyID || replies.TotalCount != 1 {
		t.Fatalf("expected only the reply, got %#v", replies)
	}
}

func TestListRepliesEmpty(t *testing.T) {
	svc := New(newMemStore(10), nil)

	replies, err := svc.ListReplies(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListReplies error: %v", err)
	}
	if replies.Reviews == nil || len(replies.Reviews) != 0 || replies.TotalCount != 0 {
		t.Fatalf("expected empty reply list, got %#v", replies)
	}
}

func TestCreateValidation(t *testing.T) {
	m := newMemStore(10, 20)
	otherPodcastReview, _ := m.CreateReview(context.Background(), store.Review{PodcastID: 20, Text: "elsewhere", CreatorID: 2})
	m.writes = 0
	svc := New(m, nil)

	tests := []struct {
		name    string
		actor   *auth.Actor
		in      CreateInput
		kind    app.Kind
		message string
	}{
		{name: "anonymous", actor: nil, in: CreateInput{PodcastID: 10, Text: "x"}, kind: app.KindUnauthorized},
		{name: "blank text", actor: userA, in: CreateInput{PodcastID: 10, Text: "   "}, kind: app.KindValidation},
		{name: "rating too high", actor: userA, in: CreateInput{PodcastID: 10, Text: "x", Rating: intPtr(6)}, kind: app.KindValidation},
		{name: "negative rating", actor: userA, in: CreateInput{PodcastID: 10, Text: "x", Rating: intPtr(-1)}, kind: app.KindValidation},
		{
			name:    "missing podcast",
			actor:   userA,
			in:      CreateInput{PodcastID: 999, Text: "x", Rating: intPtr(3)},
			kind:    app.KindNotFound,
			message: "Podcast with id 999 not found.",
		},
		{
			name:    "missing parent",
			actor:   userA,
			in:      CreateInput{PodcastID: 10, Text: "x", ParentReviewID: idPtr(404)},
			kind:    app.KindNotFound,
			message: "Parent review with id 404 not found.",
		},
		{
			name:    "parent of another podcast",
			actor:   userA,
			in:      CreateInput{PodcastID: 10, Text: "x", ParentReviewID: idPtr(otherPodcastReview)},
			kind:    app.KindNotFound,
			message: "Parent review with id 1 not found.",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.actor, tc.in)
			assertKind(t, err, tc.kind)
			if tc.message != "" && app.MessageOf(err) != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, app.MessageOf(err))
			}
			if m.writes != 0 {
				t.Fatalf("rejected create must not write")
			}
		})
	}
}

func TestCreateSurvivesAggregationFailure(t *testing.T) {
	m := newMemStore(10)
	m.ratingErr = errors.New("deadlock detected")
	svc := New(m, nil)

	id, err := svc.Create(context.Background(), userA, CreateInput{PodcastID: 10, Text: "Great", Rating: intPtr(3)})
	if err != nil {
		t.Fatalf("aggregation failure must not fail creation, got %v", err)
	}
	if _, ok := m.reviews[id]; !ok {
		t.Fatalf("review must stay persisted")
	}
}

func TestListPagination(t *testing.T) {
	m := newMemStore(10)
	svc := New(m, nil)
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		if _, err := svc.Create(ctx, userA, CreateInput{PodcastID: 10, Text: "review"}); err != nil {
			t.Fatalf("Create error: %v", err)
		}
	}

	page, err := svc.List(ctx, 10, 3)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if page.TotalCount != 12 || page.TotalPages != 3 || len(page.Reviews) != 2 {
		t.Fatalf("unexpected page %d/%d with %d reviews", page.TotalCount, page.TotalPages, len(page.Reviews))
	}

	_, err = svc.List(ctx, 10, 0)
	assertKind(t, err, app.KindValidation)
}

func TestApplyRating(t *testing.T) {
	tests := []struct {
		name     string
		formula  Formula
		existing []int
		rating   int
		want     int
	}{
		{name: "mean no prior", formula: Mean, rating: 4, want: 4},
		{name: "mean ignores unrated", formula: Mean, existing: []int{0, 0}, rating: 2, want: 2},
		{name: "mean rounds half up", formula: Mean, existing: []int{4}, rating: 5, want: 5},
		{name: "mean rounds down", formula: Mean, existing: []int{1, 1}, rating: 2, want: 1},
		{name: "literal no prior", formula: Literal, rating: 3, want: 3},
		{name: "literal formula", formula: Literal, existing: []int{2, 4}, rating: 3, want: 5},
		{name: "literal clamps", formula: Literal, existing: []int{5}, rating: 5, want: 5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := newMemStore(10)
			for _, r := range tc.existing {
				_, _ = m.CreateReview(context.Background(), store.Review{PodcastID: 10, Text: "t", Rating: r, CreatorID: 2})
			}
			svc := New(m, tc.formula)

			got, err := svc.ApplyRating(context.Background(), 10, tc.rating)
			if err != nil {
				t.Fatalf("ApplyRating error: %v", err)
			}
			if got != tc.want || m.ratings[10] != tc.want {
				t.Fatalf("expected rating %d, got %d (stored %d)", tc.want, got, m.ratings[10])
			}
			if got < 0 || got > 5 {
				t.Fatalf("rating %d out of range", got)
			}
		})
	}
}

func TestApplyRatingErrors(t *testing.T) {
	svc := New(newMemStore(10), nil)

	for _, rating := range []int{0, 6} {
		_, err := svc.ApplyRating(context.Background(), 10, rating)
		assertKind(t, err, app.KindValidation)
		if app.MessageOf(err) != "Rating must be between 1 and 5." {
			t.Fatalf("unexpected message %q", app.MessageOf(err))
		}
	}

	_, err := svc.ApplyRating(context.Background(), 77, 3)
	assertKind(t, err, app.KindNotFound)
	if app.MessageOf(err) != "Podcast with id 77 not found." {
		t.Fatalf("unexpected message %q", app.MessageOf(err))
	}
}

func TestEditChangesOnlyText(t *testing.T) {
	m := newMemStore(10)
	svc := New(m, nil)
	ctx := context.Background()

	id, err := svc.Create(ctx, userA, CreateInput{PodcastID: 10, Text: "Original", Rating: intPtr(4)})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	before := m.reviews[id]

	if err := svc.Edit(ctx, userA, id, "  Edited  "); err != nil {
		t.Fatalf("Edit error: %v", err)
	}
	after := m.reviews[id]
	if after.Text != "Edited" {
		t.Fatalf("expected edited text, got %q", after.Text)
	}
	if after.Rating != before.Rating || after.PodcastID != before.PodcastID || after.CreatorID != before.CreatorID {
		t.Fatalf("edit changed more than text: %#v -> %#v", before, after)
	}
}

func TestEditAndDeleteGuards(t *testing.T) {
	m := newMemStore(10)
	svc := New(m, nil)
	ctx := context.Background()

	id, err := svc.Create(ctx, userA, CreateInput{PodcastID: 10, Text: "Mine"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	m.writes = 0

	err = svc.Edit(ctx, userB, id, "Hijacked")
	assertKind(t, err, app.KindForbidden)
	if app.MessageOf(err) != "Not allowed" {
		t.Fatalf("unexpected message %q", app.MessageOf(err))
	}

	err = svc.Delete(ctx, userB, id)
	assertKind(t, err, app.KindForbidden)

	if m.writes != 0 || m.reviews[id].Text != "Mine" {
		t.Fatalf("non-creator must not write")
	}

	err = svc.Edit(ctx, userA, 404, "x")
	assertKind(t, err, app.KindNotFound)
	if app.MessageOf(err) != "Not found review." {
		t.Fatalf("unexpected message %q", app.MessageOf(err))
	}

	assertKind(t, svc.Delete(ctx, userA, 404), app.KindNotFound)
	assertKind(t, svc.Edit(ctx, userA, id, " "), app.KindValidation)
	assertKind(t, svc.Delete(ctx, nil, id), app.KindUnauthorized)
}

func TestDeleteCascadesReplies(t *testing.T) {
	m := newMemStore(10)
	svc := New(m, nil)
	ctx := context.Background()

	parent, _ := svc.Create(ctx, userA, CreateInput{PodcastID: 10, Text: "Parent"})
	reply, _ := svc.Create(ctx, userB, CreateInput{PodcastID: 10, Text: "Reply", ParentReviewID: idPtr(parent)})
	nested, _ := svc.Create(ctx, userA, CreateInput{PodcastID: 10, Text: "Nested", ParentReviewID: idPtr(reply)})

	if err := svc.Delete(ctx, userA, parent); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	for _, id := range []int64{parent, reply, nested} {
		if _, ok := m.reviews[id]; ok {
			t.Fatalf("review %d survived parent deletion", id)
		}
	}
}

func TestFormulaByName(t *testing.T) {
	if _, err := FormulaByName("median"); err == nil {
		t.Fatalf("expected error for unknown formula")
	}
}
