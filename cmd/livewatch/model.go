package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"live-app/internal/models"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const feedSize = 12

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	statStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	pkStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("212")).Padding(0, 1)
	inviteStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type pkView struct {
	sessionID    string
	hostRoom     string
	opponentRoom string
	endsAt       time.Time
	scores       map[string]int64
	result       string
}

type model struct {
	roomID   string
	userID   string
	opponent string
	outbox   chan<- []byte

	status string
	stats  models.Stats
	feed   []string
	pk     *pkView
	invite *models.PKInviteEvent

	commenting bool
	draft      []rune

	now   time.Time
	width int
}

func newModel(roomID, userID, opponent string, outbox chan<- []byte) model {
	return model{roomID: roomID, userID: userID, opponent: opponent, outbox: outbox, status: "starting", now: time.Now()}
}

func (m model) Init() tea.Cmd {
	return tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tickMsg:
		m.now = time.Time(msg)
		return m, tick()
	case statusMsg:
		m.status = string(msg)
	case eventMsg:
		m.apply(msg)
	case tea.KeyMsg:
		if m.commenting {
			return m.typeComment(msg), nil
		}
		return m.key(msg)
	}
	return m, nil
}

func (m model) key(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	now := time.Now().UnixMilli()
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "l":
		m.send(models.MessageTypeLike, models.Like{UserID: m.userID, Timestamp: now})
	case "g":
		m.send(models.MessageTypeGift, models.Gift{UserID: m.userID, GiftID: "rose", GiftName: "rose", GiftPrice: 10, Timestamp: now})
	case "s":
		m.send(models.MessageTypeRequestStats, struct{}{})
	case "c":
		m.commenting = true
		m.draft = m.draft[:0]
	case "p":
		if m.opponent != "" {
			m.send(models.MessageTypeInvitePK, models.InvitePK{From: m.roomID, To: m.opponent, Timestamp: now})
		}
	case "e":
		if m.pk != nil && m.pk.result == "" {
			m.send(models.MessageTypePKEnded, models.PKEnded{Timestamp: now})
		}
	case "a", "d":
		if m.invite != nil {
			accepted := msg.String() == "a"
			m.send(models.MessageTypePKResponse, models.PKResponse{From: m.roomID, To: m.invite.From, Accepted: &accepted})
			m.invite = nil
		}
	}
	return m, nil
}

func (m model) typeComment(msg tea.KeyMsg) model {
	switch msg.Type {
	case tea.KeyEsc:
		m.commenting = false
	case tea.KeyEnter:
		if content := strings.TrimSpace(string(m.draft)); content != "" {
			m.send(models.MessageTypeComment, models.Comment{UserID: m.userID, Content: content, Timestamp: time.Now().UnixMilli()})
		}
		m.commenting = false
		m.draft = nil
	case tea.KeyBackspace:
		if len(m.draft) > 0 {
			m.draft = m.draft[:len(m.draft)-1]
		}
	case tea.KeySpace:
		m.draft = append(m.draft, ' ')
	case tea.KeyRunes:
		m.draft = append(m.draft, msg.Runes...)
	}
	return m
}

// send queues a message for the connection. A full outbox drops it.
func (m *model) send(typ models.MessageType, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		return
	}
	select {
	case m.outbox <- withType(data, typ):
	default:
		m.log(errStyle.Render("outbox full, dropped " + string(typ)))
	}
}

func (m *model) log(line string) {
	m.feed = append(m.feed, line)
	if len(m.feed) > feedSize {
		m.feed = m.feed[len(m.feed)-feedSize:]
	}
}

func (m *model) apply(data []byte) {
	var envelope struct {
		Type models.MessageType `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return
	}

	switch envelope.Type {
	case models.MessageTypeStatsUpdate:
		var ev models.StatsUpdate
		if json.Unmarshal(data, &ev) == nil {
			m.stats = ev.Stats
		}
	case models.MessageTypeLike:
		var ev models.LikeEvent
		if json.Unmarshal(data, &ev) == nil {
			m.stats.Likes = ev.Likes
			m.log(fmt.Sprintf("%s liked", ev.UserID))
		}
	case models.MessageTypeGift:
		var ev models.GiftEvent
		if json.Unmarshal(data, &ev) == nil {
			m.stats.Gifts, m.stats.Revenue = ev.Gifts, ev.Revenue
			m.log(fmt.Sprintf("%s sent %s (%d)", ev.UserID, nameOr(ev.GiftName, ev.GiftID), ev.GiftPrice))
		}
	case models.MessageTypeComment:
		var ev models.CommentEvent
		if json.Unmarshal(data, &ev) == nil {
			m.stats.Comments = ev.Comments
			m.log(fmt.Sprintf("%s: %s", ev.UserID, ev.Content))
		}
	case models.MessageTypeUserJoined, models.MessageTypeUserLeft:
		var ev models.UserPresence
		if json.Unmarshal(data, &ev) == nil {
			m.stats.Viewers = ev.Viewers
			verb := "joined"
			if ev.Type == models.MessageTypeUserLeft {
				verb = "left"
			}
			m.log(dimStyle.Render(fmt.Sprintf("%s %s", ev.UserID, verb)))
		}
	case models.MessageTypeInvitePK:
		var ev models.PKInviteEvent
		if json.Unmarshal(data, &ev) == nil {
			if ev.To == m.roomID {
				m.invite = &ev
			}
			m.log(fmt.Sprintf("PK invite %s -> %s", ev.From, ev.To))
		}
	case models.MessageTypePKResponse:
		var ev models.PKResponseEvent
		if json.Unmarshal(data, &ev) == nil {
			m.invite = nil
			verdict := "accepted"
			if !ev.Accepted {
				verdict = "declined"
				if ev.Reason != "" {
					verdict += " (" + ev.Reason + ")"
				}
			}
			m.log(fmt.Sprintf("PK %s by %s", verdict, ev.From))
		}
	case models.MessageTypePKStarted:
		var ev models.PKStartedEvent
		if json.Unmarshal(data, &ev) == nil {
			m.invite = nil
			m.pk = &pkView{
				sessionID:    ev.SessionID,
				hostRoom:     ev.HostRoomID,
				opponentRoom: ev.OpponentRoomID,
				endsAt:       time.UnixMilli(ev.EndsAt),
				scores:       ev.Scores,
			}
		}
	case models.MessageTypePKScore:
		var ev models.PKScoreEvent
		if json.Unmarshal(data, &ev) == nil && m.pk != nil && m.pk.sessionID == ev.SessionID {
			m.pk.scores = ev.Scores
		}
	case models.MessageTypePKEnded:
		var ev models.PKEndedEvent
		if json.Unmarshal(data, &ev) == nil {
			if m.pk == nil || m.pk.sessionID != ev.SessionID {
				m.pk = &pkView{sessionID: ev.SessionID, hostRoom: ev.HostRoomID, opponentRoom: ev.OpponentRoomID}
			}
			m.pk.scores = map[string]int64{ev.HostRoomID: ev.HostScore, ev.OpponentRoomID: ev.OpponentScore}
			m.pk.endsAt = time.Time{}
			switch {
			case ev.Tie:
				m.pk.result = "tie (" + ev.Reason + ")"
			default:
				m.pk.result = ev.Winner + " wins (" + ev.Reason + ")"
			}
		}
	case models.MessageTypePKInviteExpired:
		m.invite = nil
		m.log(dimStyle.Render("PK invite expired"))
	case models.MessageTypeError:
		var ev models.ErrorEvent
		if json.Unmarshal(data, &ev) == nil {
			m.log(errStyle.Render(fmt.Sprintf("error %s: %s", ev.Code, ev.Message)))
		}
	default:
		m.log(dimStyle.Render(string(envelope.Type)))
	}
}

func nameOr(name, id string) string {
	if name != "" {
		return name
	}
	return id
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("room "+m.roomID) + "  " + dimStyle.Render(m.status) + "\n\n")
	b.WriteString(statStyle.Render(fmt.Sprintf(
		"viewers %d  likes %d  gifts %d  revenue %d  comments %d  live %s",
		m.stats.Viewers, m.stats.Likes, m.stats.Gifts, m.stats.Revenue, m.stats.Comments,
		time.Duration(m.stats.DurationSeconds)*time.Second,
	)) + "\n\n")

	if m.pk != nil {
		b.WriteString(pkStyle.Render(m.pkLines()) + "\n")
	}
	if m.invite != nil {
		b.WriteString(inviteStyle.Render(fmt.Sprintf("PK invite from %s  [a]ccept  [d]ecline", m.invite.From)) + "\n")
	}

	b.WriteString("\n")
	for _, line := range m.feed {
		b.WriteString(line + "\n")
	}

	b.WriteString("\n")
	if m.commenting {
		b.WriteString("comment> " + string(m.draft) + "_\n")
	} else {
		keys := "[l]ike  [g]ift  [c]omment  [s]tats"
		if m.opponent != "" {
			keys += "  [p]k " + m.opponent + "  [e]nd pk"
		}
		b.WriteString(dimStyle.Render(keys+"  [q]uit") + "\n")
	}
	return b.String()
}

func (m model) pkLines() string {
	pk := m.pk
	header := "PK"
	switch {
	case pk.result != "":
		header += "  " + pk.result
	case !pk.endsAt.IsZero():
		remaining := max(pk.endsAt.Sub(m.now).Round(time.Second), 0)
		header += "  " + remaining.String() + " left"
	}
	return fmt.Sprintf("%s\n%s %d  vs  %s %d", header,
		pk.hostRoom, pk.scores[pk.hostRoom], pk.opponentRoom, pk.scores[pk.opponentRoom])
}
