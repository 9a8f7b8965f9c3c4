package command

import (
	"strconv"
	"strings"
	"time"

	"github.com/yndnr/tradeguard/internal/cli/output"
)

// result mirrors the command result the API returns in data.
type result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`

	NeedsTwoFactor   bool   `json:"needs_two_factor,omitempty"`
	RequiresPassword bool   `json:"requires_password,omitempty"`
	GuardCode        string `json:"steam_guard_code,omitempty"`
	ExpiresIn        int    `json:"expires_in,omitempty"`

	AutoAcceptGifts *bool `json:"auto_accept_gifts,omitempty"`
	Available       *bool `json:"available,omitempty"`

	Offers     offerList       `json:"offers,omitempty"`
	Secrets    secretList      `json:"secrets,omitempty"`
	Secret     *secret         `json:"secret,omitempty"`
	Status     *statusView     `json:"status,omitempty"`
	Connection *connectionView `json:"connection,omitempty"`
}

type item struct {
	AppID     uint32 `json:"appid"`
	ContextID string `json:"contextid"`
	AssetID   string `json:"assetid"`
}

type offer struct {
	ID             string `json:"id"`
	Partner        string `json:"partner"`
	ItemsToGive    []item `json:"items_to_give"`
	ItemsToReceive []item `json:"items_to_receive"`
	Message        string `json:"message,omitempty"`
	State          string `json:"state"`
	IsGift         bool   `json:"is_gift"`
}

type offerList []offer

func (l offerList) Table() *output.Table {
	t := output.NewTable("ID", "PARTNER", "GIVE", "RECEIVE", "GIFT", "STATE", "MESSAGE")
	for _, o := range l {
		t.AddRow(o.ID, o.Partner,
			strconv.Itoa(len(o.ItemsToGive)), strconv.Itoa(len(o.ItemsToReceive)),
			yesNo(o.IsGift), o.State, o.Message)
	}
	return t
}

type secret struct {
	Filename    string `json:"filename"`
	AccountName string `json:"account_name"`
	SteamID     string `json:"steam_id,omitempty"`
	DeviceID    string `json:"device_id,omitempty"`
}

type secretList []secret

func (l secretList) Table() *output.Table {
	t := output.NewTable("ACCOUNT", "STEAM ID", "FILE")
	for _, s := range l {
		t.AddRow(s.AccountName, s.SteamID, s.Filename)
	}
	return t
}

type session struct {
	ID            string    `json:"id"`
	Identity      string    `json:"identity"`
	SteamID       string    `json:"steam_id,omitempty"`
	EstablishedAt time.Time `json:"established_at"`
	Recoveries    int       `json:"recoveries"`
}

type statusView struct {
	State           string     `json:"state"`
	Session         *session   `json:"session,omitempty"`
	AutoAcceptGifts bool       `json:"auto_accept_gifts"`
	Attempt         int        `json:"reconnect_attempt,omitempty"`
	CooldownUntil   *time.Time `json:"cooldown_until,omitempty"`
	LastError       string     `json:"last_error,omitempty"`
}

func (s *statusView) Table() *output.Table {
	t := output.NewTable("FIELD", "VALUE")
	t.AddRow("state", s.State)
	if s.Session != nil {
		t.AddRow("account", s.Session.Identity)
		t.AddRow("steam id", s.Session.SteamID)
		t.AddRow("session", s.Session.ID)
		t.AddRow("established", formatTime(s.Session.EstablishedAt))
		t.AddRow("recoveries", strconv.Itoa(s.Session.Recoveries))
	}
	t.AddRow("auto-accept gifts", yesNo(s.AutoAcceptGifts))
	if s.Attempt > 0 {
		t.AddRow("reconnect attempt", strconv.Itoa(s.Attempt))
	}
	if s.CooldownUntil != nil {
		t.AddRow("rate limited until", formatTime(*s.CooldownUntil))
	}
	if s.LastError != "" {
		t.AddRow("last error", s.LastError)
	}
	return t
}

type connectionView struct {
	State              string     `json:"state"`
	Connected          bool       `json:"connected"`
	ConnectionStatus   string     `json:"connection_status"`
	TransportConnected bool       `json:"transport_connected"`
	ProbeOK            bool       `json:"probe_ok"`
	ProbeError         string     `json:"probe_error,omitempty"`
	LastActivity       *time.Time `json:"last_activity,omitempty"`
	LastProbeOKAt      *time.Time `json:"last_probe_ok_at,omitempty"`
}

func (v *connectionView) Table() *output.Table {
	t := output.NewTable("FIELD", "VALUE")
	t.AddRow("status", v.ConnectionStatus)
	t.AddRow("state", v.State)
	t.AddRow("transport", yesNo(v.TransportConnected))
	t.AddRow("probe", yesNo(v.ProbeOK))
	if v.ProbeError != "" {
		t.AddRow("probe error", v.ProbeError)
	}
	if v.LastActivity != nil {
		t.AddRow("last offer activity", formatTime(*v.LastActivity))
	}
	if v.LastProbeOKAt != nil {
		t.AddRow("last probe ok", formatTime(*v.LastProbeOKAt))
	}
	return t
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
