package site

import "html/template"

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 860px; margin: 2rem auto; padding: 0 1rem; color: #222; }
h1 { color: #722f37; }
ul.toplists { list-style: none; padding: 0; }
ul.toplists li { margin: .5rem 0; }
table.updates { border-collapse: collapse; width: 100%; font-size: .9rem; }
table.updates td, table.updates th { border-bottom: 1px solid #ddd; padding: .4rem .6rem; text-align: left; }
footer { margin-top: 3rem; font-size: .8rem; color: #888; }
</style>
</head>
<body>
<h1>🍷 {{.Title}}</h1>
<h2>Toplists</h2>
<ul class="toplists">
{{range .Toplists}}<li><a href="toplists/{{.ID}}.html">{{.Name}}</a> ({{len .WineIDs}} wines)</li>
{{else}}<li>No toplists yet.</li>
{{end}}</ul>
{{if .UpdateLog}}<h2>Recent updates</h2>
<table class="updates">
<tr><th>List</th><th>Wines</th><th>Matches</th><th>Status</th><th>Completed</th></tr>
{{range .UpdateLog}}<tr><td>{{.ToplistName}}</td><td>{{.WinesFound}}</td><td>{{.MatchesFound}}</td><td>{{.Status}}</td><td>{{.CompletedAt.Format "2006-01-02 15:04"}}</td></tr>
{{end}}</table>
{{end}}
<footer>Generated {{.GeneratedAt.Format "2006-01-02 15:04 MST"}}</footer>
</body>
</html>
`))

var toplistTemplate = template.Must(template.New("toplist").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Toplist.Name}} — {{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 860px; margin: 2rem auto; padding: 0 1rem; color: #222; }
h1 { color: #722f37; }
.wine { border: 1px solid #ddd; border-radius: 8px; padding: 1rem; margin: 1rem 0; display: flex; gap: 1rem; }
.wine img { width: 64px; object-fit: contain; }
.wine .meta { flex: 1; }
.rating { color: #b8860b; font-weight: bold; }
.match { color: #2e7d32; }
.nomatch { color: #999; }
.verified { font-size: .8rem; color: #2e7d32; }
a.back { color: #722f37; }
footer { margin-top: 3rem; font-size: .8rem; color: #888; }
</style>
</head>
<body>
<p><a class="back" href="../index.html">← All toplists</a></p>
<h1>{{.Toplist.Name}}</h1>
{{range .Rows}}<div class="wine">
{{if .ImageURL}}<img src="{{.ImageURL}}" alt="" loading="lazy">{{end}}
<div class="meta">
<strong>{{.Wine.Name}}</strong>{{if .Wine.Vintage}} ({{.Wine.Vintage}}){{end}}
<span class="rating">★ {{printf "%.1f" .Wine.Rating}}</span><br>
{{if .Wine.Producer}}{{.Wine.Producer}} · {{end}}{{.Wine.Country}}
{{if .Match}}<p class="match">
Available at Systembolaget{{if .Product}}: <a href="{{.ShopURL}}">{{.Product.FullName}}</a> — {{printf "%.0f" .Product.Price}} SEK{{end}}
(score {{printf "%.0f" .Match.MatchScore}}, {{.Match.MatchType}})
{{if .Match.Verified}}<span class="verified">✔ verified</span>{{end}}
</p>{{else}}<p class="nomatch">No Systembolaget match found.</p>{{end}}
</div>
</div>
{{else}}<p>No wines in this list.</p>
{{end}}
<footer>Generated {{.GeneratedAt.Format "2006-01-02 15:04 MST"}}</footer>
</body>
</html>
`))
