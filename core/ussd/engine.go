package ussd

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/murende/soko/core/listing"
	"github.com/murende/soko/core/logger"
	"github.com/murende/soko/core/menu"
	"github.com/murende/soko/core/session"
)

// DefaultPerPage is how many listings a browse screen shows. Small on
// purpose: feature-phone gateways paginate long screens behind MORE/98.
const DefaultPerPage = 4

// ExitInput ends the conversation from any menu screen.
const ExitInput = "00"

// nextPageInput requests the following browse page.
const nextPageInput = "n"

// Options tunes engine behaviour.
type Options struct {
	// MaxRetries is how many consecutive invalid inputs a node tolerates
	// before the conversation is abandoned.
	MaxRetries int
	// PerPage is the browse page size. Zero means DefaultPerPage.
	PerPage int
	// Now is injectable for tests. Nil means time.Now.
	Now func() time.Time
}

// Engine advances sessions through the menu tree. It owns no persistence:
// the transport loads the session, calls Advance once and saves the result.
type Engine struct {
	tree       *menu.Tree
	repo       listing.Repository
	maxRetries int
	perPage    int
	now        func() time.Time
}

// NewEngine wires the state machine over a validated tree and a repository.
func NewEngine(tree *menu.Tree, repo listing.Repository, opts Options) *Engine {
	e := &Engine{
		tree:       tree,
		repo:       repo,
		maxRetries: opts.MaxRetries,
		perPage:    opts.PerPage,
		now:        opts.Now,
	}
	if e.perPage <= 0 {
		e.perPage = DefaultPerPage
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Advance applies one tokenized input to the session and returns the reply
// text plus whether the conversation continues. The session is mutated in
// place; on a dependency error it is left ACTIVE and unmoved so the
// gateway's redelivery can retry.
func (e *Engine) Advance(ctx context.Context, sess *session.Session, input string) (string, bool, error) {
	now := e.now()

	switch sess.Status {
	case session.StatusCompleted:
		// gateway redelivery of a finished conversation: replay, never
		// re-run the side effect
		logger.Debug(ctx, "ussd", "replaying completed reply",
			slog.String("node", sess.CurrentNode))
		return sess.LastReply, false, nil

	case session.StatusAbandoned, session.StatusExpired:
		sess.Reset(e.tree.Root(), now)
		text, _, err := e.renderNode(ctx, sess, e.tree.Root())
		if err != nil {
			return "", false, err
		}
		return TextSessionRestarted + text, true, nil
	}

	sess.Touch(now)

	node, err := e.tree.Get(sess.CurrentNode)
	if err != nil {
		return "", false, configErr(fmt.Sprintf("session points at unknown node %q", sess.CurrentNode))
	}
	ctx = logger.WithNode(ctx, node.ID)

	// first contact, or a MORE page-through that carried no answer
	if input == "" {
		return e.renderNode(ctx, sess, node.ID)
	}

	if input == ExitInput && (node.Kind == menu.KindMenu || node.Kind == menu.KindPaged) {
		return e.abandon(ctx, sess, TextGoodbye), false, nil
	}

	switch node.Kind {
	case menu.KindMenu:
		return e.advanceMenu(ctx, sess, node, input)
	case menu.KindCapture:
		return e.advanceCapture(ctx, sess, node, input)
	case menu.KindPaged:
		return e.advancePaged(ctx, sess, node, input)
	default:
		return "", false, configErr(fmt.Sprintf("node %q has non-advanceable kind %q", node.ID, node.Kind))
	}
}

func (e *Engine) advanceMenu(ctx context.Context, sess *session.Session, node *menu.Node, input string) (string, bool, error) {
	choice, ok := node.ChoiceFor(input)
	if !ok {
		return e.invalid(ctx, sess, node, TextInvalidOption)
	}
	if node.Capture != "" && choice.Label != "" {
		sess.SetField(node.Capture, choice.Label)
	}
	sess.Retries = 0
	logger.Debug(ctx, "ussd", "menu choice taken",
		slog.String("choice", input),
		slog.String("next", choice.Next))
	return e.enter(ctx, sess, choice.Next, nil)
}

func (e *Engine) advanceCapture(ctx context.Context, sess *session.Session, node *menu.Node, input string) (string, bool, error) {
	if !menu.ValidateInput(node.Validate, input) {
		return e.invalid(ctx, sess, node, captureNotice(node.Validate))
	}
	sess.SetField(node.Capture, strings.TrimSpace(input))
	sess.Retries = 0
	return e.enter(ctx, sess, node.Next, nil)
}

func (e *Engine) advancePaged(ctx context.Context, sess *session.Session, node *menu.Node, input string) (string, bool, error) {
	if choice, ok := node.ChoiceFor(input); ok {
		sess.Page = 0
		sess.Retries = 0
		return e.enter(ctx, sess, choice.Next, nil)
	}

	items, more, err := e.pageItems(ctx, sess)
	if err != nil {
		return "", false, err
	}

	if input == nextPageInput && more {
		sess.Page++
		sess.Retries = 0
		return e.renderNode(ctx, sess, node.ID)
	}

	if n, convErr := strconv.Atoi(input); convErr == nil && n >= 1 && n <= len(items) {
		selected := items[n-1]
		sess.Retries = 0
		logger.Debug(ctx, "ussd", "listing selected",
			slog.String("listing_id", selected.ID))
		return e.enter(ctx, sess, node.Next, &selected)
	}

	return e.invalid(ctx, sess, node, TextInvalidOption)
}

// enter moves the session to nodeID. Terminal nodes run their effect and
// finish the conversation; everything else renders its screen.
func (e *Engine) enter(ctx context.Context, sess *session.Session, nodeID string, selected *listing.Listing) (string, bool, error) {
	node, err := e.tree.Get(nodeID)
	if err != nil {
		return "", false, configErr(fmt.Sprintf("transition to unknown node %q", nodeID))
	}
	ctx = logger.WithNode(ctx, nodeID)

	if node.Terminal() {
		return e.runTerminal(ctx, sess, node, selected)
	}

	if sess.CurrentNode != nodeID {
		sess.Page = 0
	}
	sess.CurrentNode = nodeID
	return e.renderNode(ctx, sess, nodeID)
}

func (e *Engine) renderNode(ctx context.Context, sess *session.Session, nodeID string) (string, bool, error) {
	node, err := e.tree.Get(nodeID)
	if err != nil {
		return "", false, configErr(fmt.Sprintf("render of unknown node %q", nodeID))
	}
	if node.Kind == menu.KindPaged {
		return e.renderPaged(ctx, sess, node)
	}
	return menu.RenderPrompt(node.Prompt, e.lookup(sess)), true, nil
}

func (e *Engine) renderPaged(ctx context.Context, sess *session.Session, node *menu.Node) (string, bool, error) {
	items, more, err := e.pageItems(ctx, sess)
	if err != nil {
		return "", false, err
	}

	var b strings.Builder
	b.WriteString(menu.RenderPrompt(node.Prompt, e.lookup(sess)))
	b.WriteString("\n")
	if len(items) == 0 {
		b.WriteString(TextNoListings)
		b.WriteString("\n")
	}
	for i, item := range items {
		// contact values stay out of browse screens; they are revealed
		// only through the visibility gate
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, item.Name, item.Description)
	}
	if more {
		fmt.Fprintf(&b, "%s. More\n", nextPageInput)
	}
	b.WriteString("0. Back")
	return b.String(), true, nil
}

// pageItems recomputes the browse page on every visit so new listings show
// up without session state tracking them.
func (e *Engine) pageItems(ctx context.Context, sess *session.Session) ([]listing.Listing, bool, error) {
	village, ok := sess.Field("village")
	if !ok {
		return nil, false, configErr("browse reached without a village")
	}
	category := e.browseCategory(sess)
	if category == "" {
		return nil, false, configErr("browse reached without a category")
	}

	items, more, err := e.repo.FindByVillageCategory(ctx, village, category, sess.Page, e.perPage)
	if err != nil {
		return nil, false, dependencyErr("listing lookup failed", err)
	}
	return items, more, nil
}

// browseCategory resolves the stored category, folding the transport
// subcategory into the stored form.
func (e *Engine) browseCategory(sess *session.Session) string {
	category, _ := sess.Field("category")
	if category != listing.CategoryTransport {
		return category
	}
	if sub, ok := sess.Field("subcategory"); ok && sub != "" {
		return listing.CategoryTransport + " - " + sub
	}
	return category
}

// lookup backs prompt templates with session state.
func (e *Engine) lookup(sess *session.Session) func(string) (string, bool) {
	return func(key string) (string, bool) {
		switch key {
		case "recent":
			if len(sess.Recent) == 0 {
				return TextNoRecent, true
			}
			return strings.Join(sess.Recent, "\n"), true
		case "category":
			if c := e.browseCategory(sess); c != "" {
				return c, true
			}
			return "", false
		case "caller":
			return sess.CallerID, sess.CallerID != ""
		default:
			return sess.Field(key)
		}
	}
}

func (e *Engine) invalid(ctx context.Context, sess *session.Session, node *menu.Node, notice string) (string, bool, error) {
	sess.Retries++
	if sess.Retries > e.maxRetries {
		logger.Info(ctx, "ussd", "retry limit reached",
			slog.Int("retries", sess.Retries))
		return e.abandon(ctx, sess, TextTooManyRetries), false, nil
	}
	text, _, err := e.renderNode(ctx, sess, node.ID)
	if err != nil {
		return "", false, err
	}
	return notice + text, true, nil
}

func (e *Engine) abandon(ctx context.Context, sess *session.Session, reply string) string {
	sess.Status = session.StatusAbandoned
	sess.LastReply = reply
	logger.Info(ctx, "ussd", "conversation abandoned",
		slog.String("node", sess.CurrentNode))
	return reply
}

func (e *Engine) runTerminal(ctx context.Context, sess *session.Session, node *menu.Node, selected *listing.Listing) (string, bool, error) {
	switch node.Effect {
	case menu.EffectPublishListing:
		return e.publishListing(ctx, sess, node)
	case menu.EffectRevealContact:
		return e.revealContact(ctx, sess, node, selected)
	default:
		reply := menu.RenderPrompt(node.Prompt, e.lookup(sess))
		return e.complete(ctx, sess, node, reply), false, nil
	}
}

func (e *Engine) publishListing(ctx context.Context, sess *session.Session, node *menu.Node) (string, bool, error) {
	village, _ := sess.Field("village")
	name, _ := sess.Field("name")
	contact, _ := sess.Field("contact")
	description, _ := sess.Field("description")
	category := e.browseCategory(sess)

	if village == "" || name == "" || category == "" || contact == "" {
		logger.Warn(ctx, "ussd", "publish with missing fields",
			slog.String("village", village),
			slog.String("category", category))
		return e.complete(ctx, sess, node, TextMissingData), false, nil
	}

	l := &listing.Listing{
		Village:       village,
		Category:      category,
		Name:          name,
		Description:   description,
		ContactNumber: contact,
		Visibility:    listing.VisibilityHidden,
		OwnerCallerID: sess.CallerID,
	}
	id, err := e.repo.Create(ctx, l)
	if err != nil {
		// session stays ACTIVE at the confirm screen; the write is
		// retryable on the next callback
		return "", false, dependencyErr("listing create failed", err)
	}

	logger.Info(ctx, "ussd", "listing published",
		slog.String("effect", menu.EffectPublishListing),
		slog.String("listing_id", id),
		slog.String("village", village),
		slog.String("category", category),
		slog.String("visibility", string(l.Visibility)))
	return e.complete(ctx, sess, node, TextSaved), false, nil
}

func (e *Engine) revealContact(ctx context.Context, sess *session.Session, node *menu.Node, selected *listing.Listing) (string, bool, error) {
	if selected == nil {
		return "", false, configErr("reveal reached without a selection")
	}
	value, routed, err := e.repo.ContactForRouting(ctx, selected.ID)
	if err != nil {
		return "", false, dependencyErr("contact lookup failed", err)
	}

	var reply string
	if routed {
		reply = fmt.Sprintf("%s\nRouting code: %s\nQuote this code to the service line to be connected.", selected.Name, value)
	} else {
		reply = fmt.Sprintf("%s\nCall: %s", selected.Name, value)
	}
	sess.AddRecent(fmt.Sprintf("%s: %s", selected.Name, value))

	logger.Info(ctx, "ussd", "contact revealed",
		slog.String("effect", menu.EffectRevealContact),
		slog.String("listing_id", selected.ID),
		slog.Bool("routed", routed))
	return e.complete(ctx, sess, node, reply), false, nil
}

// complete marks the conversation finished and records the reply for
// redelivery replay.
func (e *Engine) complete(ctx context.Context, sess *session.Session, node *menu.Node, reply string) string {
	sess.CurrentNode = node.ID
	sess.Status = session.StatusCompleted
	sess.LastReply = reply
	logger.Debug(ctx, "ussd", "conversation completed",
		slog.String("node", node.ID),
		slog.Bool("cont", false))
	return reply
}

func captureNotice(validator string) string {
	switch validator {
	case menu.ValidateName:
		return TextNameHint
	case menu.ValidatePhone:
		return TextPhoneHint
	default:
		return TextEmptyHint
	}
}
