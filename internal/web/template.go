package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/iono/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"unit": func(ch status.ChannelStatus) string {
		switch ch.Kind.String() {
		case "AV", "AO":
			return "mV"
		case "AI":
			return "µA"
		}
		return ""
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Iono I/O</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.error { color: red; }
</style>
</head>
<body>
<h1>Iono I/O</h1>

<h2>Channels</h2>
<table>
<tr><th>Channel</th><td>Value</td><td>Commits</td></tr>
{{range .Channels}}<tr><th>{{.ID}}</th>{{if .Valid}}<td>{{.Value}} {{unit .}}</td>{{else}}<td class="unknown">UNKNOWN</td>{{end}}<td>{{.Commits}}</td></tr>
{{end}}</table>
<table>
<tr><th>Ready</th><td>{{if .Ready}}yes{{else}}no{{end}}</td></tr>
{{if .LastError}}<tr><th>Last error</th><td class="error">{{.LastError}}</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Driver</th><td>{{.Config.Driver}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Digital window</th><td>{{.Config.DigitalStableMs}}ms</td></tr>
<tr><th>Analog window</th><td>{{.Config.AnalogStableMs}}ms</td></tr>
<tr><th>Thresholds</th><td>{{.Config.MinVarMV}}mV / {{.Config.MinVarUA}}µA</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
