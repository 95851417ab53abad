package dashboard

import "net/http"

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(dashboardHTML))
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Talus Tally Shell</title>
<style>
  body { margin: 0; padding: 12px 16px; background: #101418; color: #d8dee4; font: 13px/1.45 system-ui, sans-serif; }
  .top { display: flex; align-items: baseline; gap: 12px; margin-bottom: 12px; }
  .top h1 { font-size: 17px; margin: 0; flex: 1; }
  .top h1 span { color: #6cb6ff; font-weight: 400; }
  .meta { color: #768390; font-size: 12px; }
  .meta .live { color: #57ab5a; }
  section { border: 1px solid #2d333b; border-radius: 6px; margin-bottom: 12px; }
  section h2 { margin: 0; padding: 6px 10px; font-size: 12px; color: #768390; border-bottom: 1px solid #2d333b; }
  section h2 .count { float: right; }
  .status { display: grid; grid-template-columns: repeat(auto-fill, minmax(150px, 1fr)); gap: 8px; padding: 8px 10px; }
  .label { font-size: 11px; color: #768390; }
  .dot { display: inline-block; width: 8px; height: 8px; border-radius: 4px; margin-right: 5px; background: #768390; }
  .dot.up { background: #57ab5a; }
  .dot.down { background: #e5534b; }
  table { width: 100%; border-collapse: collapse; }
  th, td { padding: 4px 10px; text-align: left; }
  th { color: #768390; font-weight: 400; }
  td.cmd { font-family: ui-monospace, monospace; }
  .reason-exited { color: #c69026; }
  .reason-abandoned { color: #e5534b; }
  .empty { padding: 10px; color: #768390; }
  button { font: inherit; padding: 2px 10px; border-radius: 4px; border: 1px solid #e5534b; background: none; color: #e5534b; cursor: pointer; }
</style>
</head>
<body>
<div class="top">
  <h1>Talus Tally <span>shell</span></h1>
  <span class="meta">Updated: <span id="updated" class="live">-</span></span>
  <button onclick="requestExit()">Exit App</button>
</div>

<section>
  <h2>Backend</h2>
  <div class="status" id="status"></div>
</section>

<section>
  <h2>Launches <span class="count" id="launches-count">0</span></h2>
  <div id="launches"></div>
</section>

<script>
function esc(s) {
  if (s === undefined || s === null) return '';
  return String(s).replace(/&/g,'&amp;').replace(/</g,'&lt;').replace(/>/g,'&gt;');
}

function renderStatus(s) {
  let dot = 'idle', label = 'not started';
  if (s.reachable) { dot = 'up'; label = 'reachable'; }
  else if (s.running) { dot = 'down'; label = 'starting or unresponsive'; }
  document.getElementById('status').innerHTML =
    '<div><div class="label">Health</div><span class="dot ' + dot + '"></span>' + label + '</div>' +
    '<div><div class="label">Endpoint</div>' + esc(s.addr) + '</div>' +
    '<div><div class="label">PID</div>' + (s.pid || '-') + '</div>' +
    '<div><div class="label">Kind</div>' + esc(s.kind || '-') + '</div>' +
    '<div><div class="label">Uptime</div>' + esc(s.uptime || '-') + '</div>' +
    '<div><div class="label">Shell</div>' + esc(s.state) + '</div>';
}

function renderLaunches(list) {
  const el = document.getElementById('launches');
  document.getElementById('launches-count').textContent = list ? list.length : 0;
  if (!list || list.length === 0) {
    el.innerHTML = '<div class="empty">No launches recorded</div>';
    return;
  }
  let html = '<table><tr><th>Started</th><th>PID</th><th>Kind</th><th>Command</th><th>Duration</th><th>End</th></tr>';
  for (const l of list) {
    const end = l.open ? 'running' : esc(l.end_reason) + (l.end_reason === 'exited' ? ' (' + l.exit_code + ')' : '');
    html += '<tr><td>' + esc(l.started) + '</td><td>' + l.pid + '</td><td>' + esc(l.kind) +
      '</td><td class="cmd">' + esc(l.command) + '</td><td>' + esc(l.duration) +
      '</td><td class="reason-' + esc(l.end_reason) + '">' + end + '</td></tr>';
  }
  el.innerHTML = html + '</table>';
}

async function refresh() {
  try {
    const [status, launches] = await Promise.all([
      fetch('/api/status').then(r => r.json()),
      fetch('/api/launches').then(r => r.json()),
    ]);
    renderStatus(status);
    renderLaunches(launches);
    document.getElementById('updated').textContent = new Date().toLocaleTimeString();
  } catch (e) {
    document.getElementById('updated').textContent = 'error';
  }
}

async function requestExit() {
  if (!confirm('Stop the backend and exit the app?')) return;
  await fetch('/api/exit', { method: 'POST' });
}

refresh();
setInterval(refresh, 2000);
</script>
</body>
</html>
`
