package web

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/google/uuid"

	"github.com/jaminalder/timetravel-tic-tac-toe/internal/app"
	"github.com/jaminalder/timetravel-tic-tac-toe/internal/domain"
	"github.com/jaminalder/timetravel-tic-tac-toe/internal/session"
)

type templates struct {
	game  *template.Template
	board *template.Template
	index *template.Template
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"iter": func(n int) []int {
			a := make([]int, n)
			for i := range a {
				a[i] = i
			}
			return a
		},
		"cellSymbol": func(c domain.Cell) string { return c.String() },
		"status":     status,
		"add":        func(a, b int) int { return a + b },
		"mul":        func(a, b int) int { return a * b },
		"orders":     func() []string { return []string{domain.Ascending.String(), domain.Descending.String()} },
	}
}

func status(gs app.GameState) string {
	switch gs.Result.Outcome {
	case domain.Won:
		return "Winner: " + gs.Result.Winner.String()
	case domain.Draw:
		return "Game is a draw!"
	default:
		return "Next player: " + gs.Turn().String()
	}
}

func loadTemplates() *templates {
	base := template.Must(template.New("base").Funcs(funcs()).Parse(`<!doctype html><html><head>
<meta charset="utf-8"/>
<title>Tic-Tac-Toe</title>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<script src="https://unpkg.com/htmx.org@1.9.12/dist/ext/sse.js"></script>
<style>
.board-row{display:flex}.square{width:3em;height:3em;font-size:1.5em}
.winning{background:#fd6}.sort-button-active{font-weight:bold}
</style>
</head><body>{{template "content" .}}</body></html>`))
	// the board lives in the same set so the game page can include it
	template.Must(base.New("board").Parse(boardTemplate))
	index := template.Must(template.Must(base.Clone()).New("content").Parse(`<h1>Tic-Tac-Toe</h1>
<form action="/game" method="post">
  <select name="mode">
    <option value="hotseat">Same screen</option>
    <option value="versus">Two players</option>
    <option value="bot">Against the bot</option>
  </select>
  <button>Create</button>
</form>`))
	game := template.Must(template.Must(base.Clone()).New("content").Parse(`
<p class="seat">{{if .Seat}}You play {{cellSymbol .Seat}}{{else}}You are watching{{end}} ({{.State.Mode}})</p>
<div hx-ext="sse" sse-connect="/game/{{.ID}}/events">
  <div sse-swap="board" hx-target="#board" hx-swap="outerHTML">{{template "board" .}}</div>
</div>`))
	// standalone board template used for fragment rendering
	board := template.Must(template.New("board_only").Funcs(funcs()).Parse(boardTemplate))
	return &templates{game: game, board: board, index: index}
}

func renderTemplate(t *template.Template, name string, data any) []byte {
	var buf bytes.Buffer
	if name == "" {
		_ = t.Execute(&buf, data)
	} else {
		_ = t.ExecuteTemplate(&buf, name, data)
	}
	return buf.Bytes()
}

const boardTemplate = `{{$id := .ID}}{{$s := .State}}
<div id="board" class="game">
  <div class="game-board">
    <div class="status">{{status $s}}</div>
    {{if .Error}}
    <div class="alert">{{.Error}}</div>
    {{end}}
    {{range $r := iter 3}}
    <div class="board-row">
      {{range $c := iter 3}}{{$i := add (mul $r 3) $c}}
      <form hx-post="/game/{{$id}}/play" hx-target="#board" hx-swap="outerHTML" method="post">
        <input type="hidden" name="i" value="{{$i}}">
        <button type="submit" class="square{{if $s.Result.Contains $i}} winning{{end}}">{{cellSymbol (index $s.Board $i)}}</button>
      </form>
      {{end}}
    </div>
    {{end}}
    {{if $s.BotTurn}}
    <form hx-post="/game/{{$id}}/bot" hx-target="#board" hx-swap="outerHTML" method="post">
      <button type="submit" class="bot-move">Let the bot move</button>
    </form>
    {{end}}
  </div>
  <div class="game-info">
    {{range $o := orders}}
    <form hx-post="/game/{{$id}}/order" hx-target="#board" hx-swap="outerHTML" method="post">
      <input type="hidden" name="order" value="{{$o}}">
      <button type="submit"{{if eq $o $s.Order.String}} class="sort-button-active"{{end}}>{{if eq $o "asc"}}Ascending{{else}}Descending{{end}}</button>
    </form>
    {{end}}
    <ol>
      {{range $s.Moves}}
      <li>
        <form hx-post="/game/{{$id}}/jump" hx-target="#board" hx-swap="outerHTML" method="post">
          <input type="hidden" name="move" value="{{.Move}}">
          <button type="submit"{{if .Current}} disabled{{end}}>{{.Label}}</button>
        </form>
        {{with .Position}}<span class="position">Current position: {{.Row}}, {{.Col}}</span>{{end}}
      </li>
      {{end}}
    </ol>
  </div>
</div>
`

type boardData struct {
	ID    string
	State app.GameState
	Error string
}

type pageData struct {
	ID    string
	State app.GameState
	Error string
	Seat  domain.Cell
}

const playerCookie = "player_id"

// ensurePlayerCookie returns the player id, issuing a new one when absent or
// when the client sends the bot's reserved id.
func ensurePlayerCookie(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookie); err == nil && c.Value != "" && c.Value != session.BotPlayer {
		return c.Value
	}
	v := uuid.NewString()
	http.SetCookie(w, &http.Cookie{Name: playerCookie, Value: v, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	return v
}
