package usecase

import (
	"fmt"
	"strings"
	"unicode/utf8"

	goslack "github.com/slack-go/slack"

	"github.com/secmon-lab/huddle/pkg/domain/model"
	"github.com/secmon-lab/huddle/pkg/domain/types"
	"github.com/secmon-lab/huddle/pkg/service/slack"
)

func teamTitle(cfg *model.StandupConfig) string {
	if cfg.TeamName != "" {
		return cfg.TeamName
	}
	return cfg.TeamID.String()
}

func memberLabel(m model.Member) string {
	if m.PlatformUserID != "" {
		return fmt.Sprintf("<@%s>", m.PlatformUserID)
	}
	if m.Name != "" {
		return m.Name
	}
	return m.ID.String()
}

// deadlineText renders the collection deadline in the team's timezone
func deadlineText(inst *model.StandupInstance) string {
	deadline := inst.Deadline()
	if loc, err := inst.ConfigSnapshot.Location(); err == nil {
		deadline = deadline.In(loc)
	}
	return deadline.Format("15:04 MST")
}

// buildPromptMessage constructs the message opening a collection window
func buildPromptMessage(inst *model.StandupInstance) ([]goslack.Block, string) {
	cfg := &inst.ConfigSnapshot
	title := slack.HeaderText(fmt.Sprintf("%s standup: %s", teamTitle(cfg), inst.TargetDate))

	blocks := []goslack.Block{
		goslack.NewHeaderBlock(
			goslack.NewTextBlockObject(goslack.PlainTextType, title, true, false),
		),
	}

	var b strings.Builder
	for i, q := range cfg.Questions {
		fmt.Fprintf(&b, "*%d.* %s\n", i+1, q)
	}
	blocks = append(blocks, goslack.NewSectionBlock(
		goslack.NewTextBlockObject(goslack.MarkdownType, slack.SectionText(b.String()), false, false),
		nil, nil,
	))

	contextParts := []string{fmt.Sprintf(":hourglass: Answers close at %s", deadlineText(inst))}
	if cfg.ReminderMinutesBefore > 0 {
		contextParts = append(contextParts, fmt.Sprintf("Reminder %d minutes before", cfg.ReminderMinutesBefore))
	}
	contextParts = append(contextParts, fmt.Sprintf("%d participants", len(cfg.Members)))
	blocks = append(blocks, goslack.NewContextBlock("",
		goslack.NewTextBlockObject(goslack.MarkdownType, strings.Join(contextParts, "  |  "), false, false),
	))

	return blocks, title
}

// buildFollowupMessage constructs the reminder sent to members who have not answered
func buildFollowupMessage(inst *model.StandupInstance, kind types.FollowupKind, p model.Participation) ([]goslack.Block, string) {
	cfg := &inst.ConfigSnapshot

	var text string
	switch kind {
	case types.FollowupKindTimeoutWarning:
		text = fmt.Sprintf(":rotating_light: Final notice: the %s standup closes at %s. Please answer now.",
			teamTitle(cfg), deadlineText(inst))
	default:
		text = fmt.Sprintf(":wave: Reminder: the %s standup is waiting for your answers (closes at %s).",
			teamTitle(cfg), deadlineText(inst))
	}

	blocks := []goslack.Block{
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, slack.SectionText(text), false, false),
			nil, nil,
		),
		goslack.NewContextBlock("",
			goslack.NewTextBlockObject(goslack.MarkdownType,
				fmt.Sprintf("%d of %d answered", len(p.Responded), len(p.Responded)+len(p.Missing)), false, false),
		),
	}
	return blocks, text
}

// digestSection is a packed run of member answers rendered into a single section block
type digestSection struct {
	text    string
	members int
}

// packDigestSections renders every respondent and packs consecutive members into
// sections that each stay within the Slack section text limit
func packDigestSections(cfg *model.StandupConfig, answers []*model.Answer, responded []model.Member) []digestSection {
	byMember := make(map[types.MemberID][]*model.Answer)
	for _, a := range answers {
		byMember[a.MemberID] = append(byMember[a.MemberID], a)
	}

	var sections []digestSection
	var cur strings.Builder
	curRunes, curMembers := 0, 0
	flush := func() {
		if curMembers == 0 {
			return
		}
		sections = append(sections, digestSection{text: cur.String(), members: curMembers})
		cur.Reset()
		curRunes, curMembers = 0, 0
	}

	for _, m := range responded {
		var b strings.Builder
		fmt.Fprintf(&b, "*%s*\n", memberLabel(m))
		for _, a := range byMember[m.ID] {
			question := fmt.Sprintf("Q%d", a.QuestionIndex+1)
			if a.QuestionIndex < len(cfg.Questions) {
				question = cfg.Questions[a.QuestionIndex]
			}
			fmt.Fprintf(&b, "> _%s_\n> %s\n", question, strings.ReplaceAll(a.Text, "\n", "\n> "))
		}
		chunk := slack.SectionText(b.String())
		n := utf8.RuneCountInString(chunk)

		// one rune for the blank line separating members
		if curMembers > 0 && curRunes+1+n > slack.MaxSectionTextLength {
			flush()
		}
		if curMembers > 0 {
			cur.WriteString("\n")
			curRunes++
		}
		cur.WriteString(chunk)
		curRunes += n
		curMembers++
	}
	flush()

	return sections
}

// buildDigestMessage constructs the summary closing a cycle. The result never
// exceeds the Slack block count; respondents beyond it are summarized in a note.
func buildDigestMessage(inst *model.StandupInstance, answers []*model.Answer, p model.Participation) ([]goslack.Block, string) {
	cfg := &inst.ConfigSnapshot
	title := slack.HeaderText(fmt.Sprintf("%s standup digest: %s", teamTitle(cfg), inst.TargetDate))

	blocks := []goslack.Block{
		goslack.NewHeaderBlock(
			goslack.NewTextBlockObject(goslack.PlainTextType, title, true, false),
		),
		goslack.NewDividerBlock(),
	}

	sections := packDigestSections(cfg, answers, p.Responded)
	// header, divider and context are fixed
	budget := slack.MaxBlocks - 3
	hidden := 0
	if len(sections) > budget {
		for _, sec := range sections[budget-1:] {
			hidden += sec.members
		}
		sections = sections[:budget-1]
	}

	for _, sec := range sections {
		blocks = append(blocks, goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, sec.text, false, false),
			nil, nil,
		))
	}
	if hidden > 0 {
		blocks = append(blocks, goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType,
				fmt.Sprintf("_…and %d more responses not shown_", hidden), false, false),
			nil, nil,
		))
	}

	if len(p.Responded) == 0 {
		blocks = append(blocks, goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, "No answers were submitted.", false, false),
			nil, nil,
		))
	}

	contextParts := []string{
		fmt.Sprintf("%d answers", p.AnswersCount),
		fmt.Sprintf("%d/%d responded", len(p.Responded), len(p.Responded)+len(p.Missing)),
	}
	if len(p.Missing) > 0 {
		missing := make([]string, len(p.Missing))
		for i, m := range p.Missing {
			missing[i] = memberLabel(m)
		}
		contextParts = append(contextParts, "Missing: "+strings.Join(missing, " "))
	}
	blocks = append(blocks, goslack.NewContextBlock("",
		goslack.NewTextBlockObject(goslack.MarkdownType, slack.SectionText(strings.Join(contextParts, "  |  ")), false, false),
	))

	return blocks, title
}
