package evaluators

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/SeyyedYousef/Firewall-sub001/internal/engine"
	"github.com/SeyyedYousef/Firewall-sub001/internal/messages"
	"github.com/SeyyedYousef/Firewall-sub001/internal/rules"
	"github.com/SeyyedYousef/Firewall-sub001/internal/utils"
)

var urlRegex = regexp.MustCompile(`(?i)(?:https?://)?(?:[\p{L}0-9](?:[\p{L}0-9-]{0,61}[\p{L}0-9])?\.)+[\p{L}0-9][\p{L}0-9-]{0,61}[\p{L}0-9](?:/[^\s]*)?`)

// ContentRules evaluates every scheduled ban rule against the message and
// collects all matched categories, so the engine deletes the message once
// and warns once for the whole set.
type ContentRules struct {
	now func() time.Time
}

func NewContentRules() *ContentRules {
	return &ContentRules{now: time.Now}
}

func (f *ContentRules) Name() string { return "content_rules" }

func (f *ContentRules) Evaluate(_ context.Context, upd *engine.Update, rs *rules.ChatRuleSet, _ bool) (*engine.Verdict, error) {
	now := f.now()
	v := &engine.Verdict{}

	if violation := f.checkLinks(upd, &rs.Bans, now); violation != nil {
		v.Violations = append(v.Violations, *violation)
	}
	if violation := f.checkMedia(upd, &rs.Bans, now); violation != nil {
		v.Violations = append(v.Violations, *violation)
	}
	if violation := f.checkTextPatterns(upd, &rs.Bans, now); violation != nil {
		v.Violations = append(v.Violations, *violation)
	}
	if violation := f.checkForwards(upd, &rs.Bans, now); violation != nil {
		v.Violations = append(v.Violations, *violation)
	}
	if violation := checkWordCount(upd, &rs.General); violation != nil {
		v.Violations = append(v.Violations, *violation)
	}
	return v, nil
}

// checkLinks applies whitelist > blacklist > blanket-rule precedence per
// discovered URL. The blacklist bites even while the blanket rule is off
// or outside its schedule.
func (f *ContentRules) checkLinks(upd *engine.Update, bans *rules.BanSettings, now time.Time) *engine.Violation {
	blanket := bans.Links.ActiveAt(now)
	if !blanket && len(bans.DomainBlacklist) == 0 {
		return nil
	}

	for _, raw := range collectURLs(upd) {
		lower := strings.ToLower(raw)
		domain := registrableDomain(lower)
		if matchesList(lower, domain, bans.DomainWhitelist) {
			continue
		}
		if matchesList(lower, domain, bans.DomainBlacklist) {
			return &engine.Violation{Category: "links", Reason: messages.MsgReasonBlacklisted}
		}
		if blanket {
			return &engine.Violation{Category: "links", Reason: messages.MsgReasonLinks}
		}
	}
	return nil
}

func collectURLs(upd *engine.Update) []string {
	var urls []string
	for _, e := range upd.Entities {
		if (e.Kind == engine.EntityURL || e.Kind == engine.EntityTextLink) && e.URL != "" {
			urls = append(urls, e.URL)
		}
	}
	return append(urls, urlRegex.FindAllString(upd.Text, -1)...)
}

func registrableDomain(raw string) string {
	u := raw
	if !strings.Contains(u, "://") {
		u = "https://" + u
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(parsed.Hostname(), "www.")
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	return host
}

// matchesList reports whether the URL's registrable domain equals a list
// term or the term appears literally inside the URL.
func matchesList(lowerURL, domain string, list []string) bool {
	for _, term := range list {
		term = utils.NormalizeDomain(term)
		if term == "" {
			continue
		}
		if term == domain || strings.Contains(lowerURL, term) {
			return true
		}
	}
	return false
}

func (f *ContentRules) checkMedia(upd *engine.Update, bans *rules.BanSettings, now time.Time) *engine.Violation {
	if len(upd.Attachments) == 0 {
		return nil
	}
	byKind := map[engine.AttachmentKind]rules.BanRule{
		engine.AttachmentPhoto:     bans.Photos,
		engine.AttachmentVideo:     bans.Videos,
		engine.AttachmentAudio:     bans.Audio,
		engine.AttachmentVoice:     bans.Voice,
		engine.AttachmentDocument:  bans.Documents,
		engine.AttachmentSticker:   bans.Stickers,
		engine.AttachmentAnimation: bans.Animations,
	}
	for _, att := range upd.Attachments {
		if rule, ok := byKind[att]; ok && rule.ActiveAt(now) {
			return &engine.Violation{Category: "media_" + string(att), Reason: messages.MsgReasonMedia}
		}
	}
	return nil
}

func (f *ContentRules) checkTextPatterns(upd *engine.Update, bans *rules.BanSettings, now time.Time) *engine.Violation {
	if upd.Text == "" || !bans.TextPatterns.ActiveAt(now) {
		return nil
	}
	lower := strings.ToLower(upd.Text)
	for _, word := range bans.BlockedWords {
		word = strings.ToLower(strings.TrimSpace(word))
		if word != "" && strings.Contains(lower, word) {
			return &engine.Violation{Category: "text_patterns", Reason: messages.MsgReasonTextPattern}
		}
	}
	return nil
}

func (f *ContentRules) checkForwards(upd *engine.Update, bans *rules.BanSettings, now time.Time) *engine.Violation {
	if upd.Forward == nil {
		return nil
	}
	if bans.Forwards.ActiveAt(now) {
		return &engine.Violation{Category: "forwards", Reason: messages.MsgReasonForward}
	}
	if upd.Forward.FromChannel && bans.ChannelForwards.ActiveAt(now) {
		return &engine.Violation{Category: "channel_forwards", Reason: messages.MsgReasonForward}
	}
	return nil
}

func checkWordCount(upd *engine.Update, general *rules.GeneralSettings) *engine.Violation {
	if upd.Text == "" {
		return nil
	}
	count := utils.WordCount(upd.Text)
	if general.MinWordsPerMessage > 0 && count < general.MinWordsPerMessage {
		return &engine.Violation{Category: "word_count", Reason: messages.MsgReasonWordCount}
	}
	if general.MaxWordsPerMessage > 0 && count > general.MaxWordsPerMessage {
		return &engine.Violation{Category: "word_count", Reason: messages.MsgReasonWordCount}
	}
	return nil
}
