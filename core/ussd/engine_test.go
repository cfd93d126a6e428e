package ussd

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/murende/soko/core/listing"
	"github.com/murende/soko/core/menu"
	"github.com/murende/soko/core/session"
)

func newTestEngine(t *testing.T) (*Engine, listing.Repository) {
	t.Helper()
	repo := listing.NewMemoryRepository()
	eng := NewEngine(menu.Default(), repo, Options{MaxRetries: 3})
	return eng, repo
}

func newTestSession() *session.Session {
	return session.New("ATUid_998877", "254712345678", "main", time.Now())
}

// walk feeds inputs one callback at a time and returns the last reply.
func walk(t *testing.T, eng *Engine, sess *session.Session, inputs ...string) (string, bool) {
	t.Helper()
	ctx := context.Background()
	var (
		reply string
		cont  bool
		err   error
	)
	for _, in := range inputs {
		reply, cont, err = eng.Advance(ctx, sess, in)
		if err != nil {
			t.Fatalf("Advance(%q): %v", in, err)
		}
	}
	return reply, cont
}

func TestFirstContactRendersRootMenu(t *testing.T) {
	eng, _ := newTestEngine(t)
	sess := newTestSession()

	reply, cont := walk(t, eng, sess, "")
	if !cont {
		t.Fatal("first contact must continue")
	}
	if !strings.Contains(reply, "Village Marketplace") {
		t.Fatalf("root menu missing title: %q", reply)
	}
	if sess.CurrentNode != "main" || !sess.Active() {
		t.Fatalf("session after first contact: node=%q status=%q", sess.CurrentNode, sess.Status)
	}
}

func TestPublishFlowCollectsFieldsInOrder(t *testing.T) {
	eng, repo := newTestEngine(t)
	sess := newTestSession()

	reply, cont := walk(t, eng, sess,
		"", "8", "1", "Mama Jane Shop", "1", "Maize flour and sugar", "0712345678", "1")
	if cont {
		t.Fatal("publish confirm must end the conversation")
	}
	if reply != TextSaved {
		t.Fatalf("reply = %q, want %q", reply, TextSaved)
	}
	if sess.Status != session.StatusCompleted {
		t.Fatalf("status = %q, want COMPLETED", sess.Status)
	}

	wantFields := []string{"village", "name", "category", "description", "contact"}
	got := sess.FieldNames()
	if len(got) != len(wantFields) {
		t.Fatalf("fields = %v, want %v", got, wantFields)
	}
	for i := range wantFields {
		if got[i] != wantFields[i] {
			t.Fatalf("fields = %v, want %v", got, wantFields)
		}
	}

	ls, _, err := repo.FindByVillageCategory(context.Background(), "Sega", "Shops & Daily Needs", 0, 10)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(ls) != 1 {
		t.Fatalf("listings = %d, want 1", len(ls))
	}
	l := ls[0]
	if l.Visibility != listing.VisibilityHidden {
		t.Fatalf("visibility = %q, want HIDDEN", l.Visibility)
	}
	if l.Name != "Mama Jane Shop" || l.ContactNumber != "0712345678" {
		t.Fatalf("stored listing = %+v", l)
	}
	if l.OwnerCallerID != "254712345678" {
		t.Fatalf("owner = %q", l.OwnerCallerID)
	}
}

func TestCompletedRedeliveryIsIdempotent(t *testing.T) {
	eng, repo := newTestEngine(t)
	sess := newTestSession()

	first, _ := walk(t, eng, sess,
		"", "8", "1", "Mama Jane Shop", "1", "Maize flour and sugar", "0712345678", "1")

	// the gateway redelivers the final callback
	again, cont := walk(t, eng, sess, "1")
	if cont {
		t.Fatal("redelivery must not reopen the conversation")
	}
	if again != first {
		t.Fatalf("redelivery reply = %q, want %q", again, first)
	}

	ls, _, err := repo.FindByVillageCategory(context.Background(), "Sega", "Shops & Daily Needs", 0, 10)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(ls) != 1 {
		t.Fatalf("redelivery created a second listing: %d", len(ls))
	}
}

func TestInvalidChoiceKeepsNode(t *testing.T) {
	eng, _ := newTestEngine(t)
	sess := newTestSession()

	reply, cont := walk(t, eng, sess, "", "42")
	if !cont {
		t.Fatal("invalid choice must continue")
	}
	if !strings.Contains(reply, "Invalid choice") {
		t.Fatalf("missing invalid notice: %q", reply)
	}
	if !strings.Contains(reply, "Village Marketplace") {
		t.Fatalf("missing reprompt: %q", reply)
	}
	if sess.CurrentNode != "main" || sess.Retries != 1 {
		t.Fatalf("node=%q retries=%d", sess.CurrentNode, sess.Retries)
	}
}

func TestRetryLimitAbandons(t *testing.T) {
	eng, _ := newTestEngine(t)
	sess := newTestSession()

	walk(t, eng, sess, "", "42", "42", "42")
	reply, cont := walk(t, eng, sess, "42")
	if cont {
		t.Fatal("retry limit must end the conversation")
	}
	if reply != TextTooManyRetries {
		t.Fatalf("reply = %q", reply)
	}
	if sess.Status != session.StatusAbandoned {
		t.Fatalf("status = %q, want ABANDONED", sess.Status)
	}
}

func TestValidInputResetsRetries(t *testing.T) {
	eng, _ := newTestEngine(t)
	sess := newTestSession()

	walk(t, eng, sess, "", "42", "42", "8")
	if sess.Retries != 0 {
		t.Fatalf("retries = %d after valid input", sess.Retries)
	}
	if sess.CurrentNode != "pub_village" {
		t.Fatalf("node = %q", sess.CurrentNode)
	}
}

func TestExitInputAbandons(t *testing.T) {
	eng, _ := newTestEngine(t)
	sess := newTestSession()

	reply, cont := walk(t, eng, sess, "", ExitInput)
	if cont {
		t.Fatal("exit must end the conversation")
	}
	if reply != TextGoodbye {
		t.Fatalf("reply = %q", reply)
	}
	if sess.Status != session.StatusAbandoned {
		t.Fatalf("status = %q", sess.Status)
	}
}

func TestExpiredSessionRestartsFresh(t *testing.T) {
	eng, _ := newTestEngine(t)
	sess := newTestSession()
	walk(t, eng, sess, "", "8", "1")
	sess.Status = session.StatusExpired

	reply, cont := walk(t, eng, sess, "2")
	if !cont {
		t.Fatal("restart must continue")
	}
	if !strings.HasPrefix(reply, TextSessionRestarted) {
		t.Fatalf("missing restart notice: %q", reply)
	}
	if !sess.Active() || sess.CurrentNode != "main" {
		t.Fatalf("session after restart: node=%q status=%q", sess.CurrentNode, sess.Status)
	}
	if len(sess.Fields) != 0 {
		t.Fatalf("stale fields leaked: %v", sess.Fields)
	}
}

func TestCaptureValidatorRepromptsWithHint(t *testing.T) {
	eng, _ := newTestEngine(t)
	sess := newTestSession()

	reply, cont := walk(t, eng, sess, "", "8", "1", "Shop 24")
	if !cont {
		t.Fatal("validator failure must continue")
	}
	if !strings.Contains(reply, "No numbers") {
		t.Fatalf("missing name hint: %q", reply)
	}
	if sess.CurrentNode != "pub_name" {
		t.Fatalf("node = %q, want pub_name", sess.CurrentNode)
	}
	if _, ok := sess.Field("name"); ok {
		t.Fatal("rejected input was captured")
	}

	reply, _ = walk(t, eng, sess, "Mama Jane Shop", "1", "Maize", "12345")
	if !strings.Contains(reply, "valid phone") {
		t.Fatalf("missing phone hint: %q", reply)
	}
}

func TestPublishTransportComposesCategory(t *testing.T) {
	eng, repo := newTestEngine(t)
	sess := newTestSession()

	reply, _ := walk(t, eng, sess,
		"", "8", "3", "Juma Bodaboda", "3", "2", "Pickup for hire", "0722000111", "1")
	if reply != TextSaved {
		t.Fatalf("reply = %q", reply)
	}

	ls, _, err := repo.FindByVillageCategory(context.Background(), "Murende", listing.CategoryTransportPickups, 0, 10)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(ls) != 1 || ls[0].Category != listing.CategoryTransportPickups {
		t.Fatalf("listings = %+v", ls)
	}
}

func seedListings(t *testing.T, repo listing.Repository, village, category string, names ...string) []string {
	t.Helper()
	ids := make([]string, 0, len(names))
	for _, name := range names {
		id, err := repo.Create(context.Background(), &listing.Listing{
			Village:       village,
			Category:      category,
			Name:          name,
			Description:   "description of " + name,
			ContactNumber: "0712345678",
		})
		if err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
		ids = append(ids, id)
	}
	return ids
}

func TestBrowseRevealNeverShowsHiddenContact(t *testing.T) {
	eng, repo := newTestEngine(t)
	sess := newTestSession()
	seedListings(t, repo, "Sega", "Shops & Daily Needs", "Hidden Shop")

	browse, cont := walk(t, eng, sess, "", "1", "1")
	if !cont {
		t.Fatal("browse must continue")
	}
	if !strings.Contains(browse, "Shops & Daily Needs in Sega") {
		t.Fatalf("browse header missing: %q", browse)
	}
	if strings.Contains(browse, "0712345678") {
		t.Fatalf("hidden contact leaked into browse: %q", browse)
	}

	reveal, cont := walk(t, eng, sess, "1")
	if cont {
		t.Fatal("reveal must end the conversation")
	}
	if strings.Contains(reveal, "0712345678") {
		t.Fatalf("hidden contact leaked into reveal: %q", reveal)
	}
	if !strings.Contains(reveal, "Routing code:") {
		t.Fatalf("reveal missing routing code: %q", reveal)
	}
	if sess.Status != session.StatusCompleted {
		t.Fatalf("status = %q", sess.Status)
	}
	if len(sess.Recent) != 1 || strings.Contains(sess.Recent[0], "0712345678") {
		t.Fatalf("recent = %v", sess.Recent)
	}
}

func TestRevealPublicContactShowsNumber(t *testing.T) {
	eng, repo := newTestEngine(t)
	sess := newTestSession()
	if _, err := repo.Create(context.Background(), &listing.Listing{
		Village:       "Sega",
		Category:      "Shops & Daily Needs",
		Name:          "Open Shop",
		Description:   "everything",
		ContactNumber: "0798765432",
		Visibility:    listing.VisibilityPublic,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	reveal, _ := walk(t, eng, sess, "", "1", "1", "1")
	if !strings.Contains(reveal, "Call: 0798765432") {
		t.Fatalf("public reveal = %q", reveal)
	}
}

func TestBrowsePaging(t *testing.T) {
	eng, repo := newTestEngine(t)
	sess := newTestSession()
	seedListings(t, repo, "Bumala", "Food & Drinks",
		"one", "two", "three", "four", "five", "six")

	page0, _ := walk(t, eng, sess, "", "2", "2")
	if !strings.Contains(page0, "4. ") || strings.Contains(page0, "5. ") {
		t.Fatalf("page 0 = %q", page0)
	}
	if !strings.Contains(page0, "n. More") {
		t.Fatalf("page 0 missing More: %q", page0)
	}

	page1, cont := walk(t, eng, sess, "n")
	if !cont || sess.Page != 1 {
		t.Fatalf("paging failed: cont=%v page=%d", cont, sess.Page)
	}
	if strings.Contains(page1, "n. More") {
		t.Fatalf("last page offers More: %q", page1)
	}
	if !strings.Contains(page1, "2. ") || strings.Contains(page1, "3. ") {
		t.Fatalf("page 1 = %q", page1)
	}

	back, _ := walk(t, eng, sess, "0")
	if sess.CurrentNode != "main" || sess.Page != 0 {
		t.Fatalf("back failed: node=%q page=%d", sess.CurrentNode, sess.Page)
	}
	if !strings.Contains(back, "Village Marketplace") {
		t.Fatalf("back reply = %q", back)
	}
}

func TestBrowseEmptyVillage(t *testing.T) {
	eng, _ := newTestEngine(t)
	sess := newTestSession()

	reply, cont := walk(t, eng, sess, "", "1", "3")
	if !cont {
		t.Fatal("empty browse must continue")
	}
	if !strings.Contains(reply, "No listings yet") {
		t.Fatalf("empty browse = %q", reply)
	}
}

func TestLegacyTransportBrowsing(t *testing.T) {
	eng, repo := newTestEngine(t)
	sess := newTestSession()
	seedListings(t, repo, "Sega", listing.CategoryTransport, "Old Pickup Service")

	reply, _ := walk(t, eng, sess, "", "3", "2", "1")
	if !strings.Contains(reply, "Old Pickup Service") {
		t.Fatalf("legacy transport row missing under Pickups: %q", reply)
	}
}

func TestRecentNumbersScreen(t *testing.T) {
	eng, _ := newTestEngine(t)
	sess := newTestSession()
	sess.AddRecent("Mama Jane Shop: 01ARZ3NDEKTSV4RRFFQ69G5FAV")

	reply, cont := walk(t, eng, sess, "", "9")
	if !cont {
		t.Fatal("recent screen must continue")
	}
	if !strings.Contains(reply, "Mama Jane Shop") {
		t.Fatalf("recent entry missing: %q", reply)
	}

	empty := newTestSession()
	reply, _ = walk(t, eng, empty, "", "9")
	if !strings.Contains(reply, TextNoRecent) {
		t.Fatalf("empty recent = %q", reply)
	}
}

func TestCancelPublishEnds(t *testing.T) {
	eng, repo := newTestEngine(t)
	sess := newTestSession()

	reply, cont := walk(t, eng, sess,
		"", "8", "1", "Mama Jane Shop", "1", "Maize", "0712345678", "2")
	if cont {
		t.Fatal("cancel must end the conversation")
	}
	if reply != "Cancelled." {
		t.Fatalf("reply = %q", reply)
	}
	ls, _, err := repo.FindByVillageCategory(context.Background(), "Sega", "Shops & Daily Needs", 0, 10)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(ls) != 0 {
		t.Fatal("cancelled publish wrote a listing")
	}
}

// failingRepo simulates a storage outage.
type failingRepo struct{ listing.Repository }

func (f failingRepo) Create(ctx context.Context, l *listing.Listing) (string, error) {
	return "", errors.New("connection refused")
}

func TestDependencyFailureLeavesSessionActive(t *testing.T) {
	repo := failingRepo{listing.NewMemoryRepository()}
	eng := NewEngine(menu.Default(), repo, Options{MaxRetries: 3})
	sess := newTestSession()

	walk(t, eng, sess, "", "8", "1", "Mama Jane Shop", "1", "Maize", "0712345678")

	_, _, err := eng.Advance(context.Background(), sess, "1")
	if err == nil {
		t.Fatal("expected dependency error")
	}
	var uerr *Error
	if !errors.As(err, &uerr) || uerr.Code != CodeDependency {
		t.Fatalf("err = %v", err)
	}
	if !sess.Active() {
		t.Fatalf("status = %q, want ACTIVE", sess.Status)
	}
	if sess.CurrentNode != "pub_confirm" {
		t.Fatalf("node = %q, want pub_confirm", sess.CurrentNode)
	}
}

func TestCustomTreeWalk(t *testing.T) {
	doc := `
root: start
nodes:
  - id: start
    kind: menu
    capture: village
    prompt: "Village?"
    choices:
      - { input: "1", label: "Sega", next: ask_name }
  - id: ask_name
    kind: capture
    capture: name
    validate: name
    next: done
    prompt: "Name?"
  - id: done
    kind: terminal
    effect: none
    prompt: "Bye {name} of {village}."
`
	tree, err := menu.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	eng := NewEngine(tree, listing.NewMemoryRepository(), Options{MaxRetries: 3})
	sess := session.New("ATUid_1", "254700000000", tree.Root(), time.Now())

	reply, cont := walk(t, eng, sess, "", "1", "Wanjiku")
	if cont {
		t.Fatal("terminal must end")
	}
	if reply != "Bye Wanjiku of Sega." {
		t.Fatalf("reply = %q", reply)
	}
	names := sess.FieldNames()
	if len(names) != 2 || names[0] != "village" || names[1] != "name" {
		t.Fatalf("fields = %v", names)
	}
}
