package web

// shell is the dashboard page; the file grid itself comes from /fragment
const shell = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Printdesk</title>
<style>
*{box-sizing:border-box;margin:0;padding:0}
body{font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif;background:#f5f5f5;color:#333;line-height:1.6}

/* Header */
.hdr{background:linear-gradient(135deg,#667eea 0%,#764ba2 100%);color:#fff;padding:14px 20px;display:flex;align-items:center;justify-content:space-between;position:sticky;top:0;z-index:100}
.hdr h1{font-size:18px;font-weight:600}

/* Tab bar */
.tabs{display:flex;border-bottom:2px solid #e5e7eb;background:#fff;padding:0 16px}
.tab{padding:12px 20px;cursor:pointer;font-size:14px;font-weight:500;color:#666;border-bottom:2px solid transparent;margin-bottom:-2px}
.tab.active{color:#667eea;border-bottom-color:#667eea}

/* Content */
.content{max-width:1100px;margin:0 auto;padding:20px}
.page{display:none}
.page.active{display:block}
.toolbar{display:flex;gap:8px;flex-wrap:wrap;margin-bottom:16px;align-items:center}
.toolbar input[type=text]{padding:7px 10px;border:1px solid #ddd;border-radius:6px;font-size:14px}

/* Status and stats */
.hdr-status{font-size:13px;margin-bottom:8px}
.status-connected{color:#16a34a}.status-connecting{color:#d97706}.status-disconnected{color:#dc2626}
.stats{display:flex;gap:16px;font-size:13px;color:#666;margin-bottom:16px}

/* Cards */
.card{background:#fff;border-radius:8px;padding:20px;margin-bottom:16px;box-shadow:0 1px 3px rgba(0,0,0,.1)}
.card h2{font-size:16px;margin-bottom:12px;padding-bottom:8px;border-bottom:1px solid #eee}
.folder-info{font-size:12px;color:#888;font-weight:400;margin-left:8px}
.files-grid{display:grid;grid-template-columns:repeat(auto-fill,minmax(240px,1fr));gap:10px}
.p-card{background:#f9fafb;border-radius:6px;padding:14px;display:flex;flex-direction:column;gap:8px}
.p-card.printed{opacity:.75}
.p-info h4{font-size:14px;margin-bottom:4px;word-break:break-all}
.p-info p{font-size:12px;color:#666}
.p-actions{display:flex;gap:6px}

/* Buttons */
.btn{display:inline-flex;align-items:center;gap:6px;padding:8px 16px;border-radius:6px;border:none;cursor:pointer;font-size:14px;font-weight:500;line-height:1.4}
.btn:disabled{opacity:.5;cursor:not-allowed}
.btn-primary,.btn-print{background:#667eea;color:#fff}
.btn-secondary{background:#e5e7eb;color:#374151}
.btn-danger,.btn-delete{background:#fff;color:#ef4444;border:1px solid #ef4444}
.btn-sm{padding:5px 10px;font-size:12px}

/* Badges */
.badge{display:inline-block;padding:2px 10px;border-radius:20px;font-size:12px;font-weight:500;margin-top:4px}
.badge-green{background:#dcfce7;color:#166534}
.badge-yellow{background:#fef9c3;color:#854d0e}

/* Logs */
.log-container{background:#1a1a2e;border-radius:8px;padding:16px;font-family:'SF Mono','Cascadia Code','Courier New',monospace;font-size:13px;max-height:500px;overflow-y:auto;color:#a0aec0}
.log-entry{padding:2px 0;white-space:pre-wrap;word-break:break-all}
.log-time{color:#667eea}
.log-info{color:#a0aec0}.log-warn{color:#f59e0b}.log-error{color:#ef4444}.log-debug{color:#64748b}

/* Toasts */
.toasts{position:fixed;top:60px;right:20px;z-index:200;display:flex;flex-direction:column;gap:8px}
.toast{padding:12px 20px;border-radius:6px;color:#fff;font-size:14px;box-shadow:0 4px 12px rgba(0,0,0,.15);cursor:pointer}
.toast-success{background:#22c55e}.toast-error{background:#ef4444}.toast-info{background:#667eea}

/* Empty state */
.empty{text-align:center;padding:40px;color:#888}
.empty h3{margin-bottom:8px;color:#555}
</style>
</head>
<body>

<div class="hdr"><h1>Printdesk</h1></div>

<div class="tabs">
 <div class="tab active" data-page="files" onclick="nav('files')">Files</div>
 <div class="tab" data-page="logs" onclick="nav('logs')">Logs</div>
</div>

<div class="content">
 <div class="page active" id="page-files">
  <div class="toolbar">
   <button class="btn btn-secondary" onclick="post('/api/refresh')">Refresh</button>
   <button class="btn btn-danger" onclick="cleanPrinted()">Clean printed</button>
   <form id="upload" class="toolbar" style="margin:0">
    <input type="text" name="folder_name" placeholder="Folder name" required>
    <input type="file" name="files" multiple required>
    <button class="btn btn-primary" type="submit">Upload</button>
   </form>
  </div>
  <div id="view"></div>
 </div>

 <div class="page" id="page-logs">
  <div class="log-container" id="logs"></div>
 </div>
</div>

<script>
var currentPage = 'files';
var timer = null;

function nav(page) {
 currentPage = page;
 var pages = document.querySelectorAll('.page');
 for (var i = 0; i < pages.length; i++) pages[i].classList.toggle('active', pages[i].id === 'page-' + page);
 var tabs = document.querySelectorAll('.tab');
 for (var i = 0; i < tabs.length; i++) tabs[i].classList.toggle('active', tabs[i].dataset.page === page);
 tick();
}

function tick() {
 if (currentPage === 'files') refreshView();
 if (currentPage === 'logs') refreshLogs();
}

function refreshView() {
 fetch('/fragment').then(function(r){return r.text()}).then(function(html) {
  document.getElementById('view').innerHTML = html;
 });
}

function refreshLogs() {
 fetch('/api/logs').then(function(r){return r.json()}).then(function(data) {
  var out = '';
  (data.entries || []).forEach(function(e) {
   out += '<div class="log-entry log-' + esc(e.level) + '"><span class="log-time">' +
    esc(new Date(e.timestamp).toLocaleTimeString()) + '</span> ' + esc(e.message) + '</div>';
  });
  document.getElementById('logs').innerHTML = out;
 });
}

function post(url, opts) {
 opts = opts || {};
 opts.method = opts.method || 'POST';
 return fetch(url, opts).then(refreshView, refreshView);
}

function cleanPrinted() {
 if (!confirm('Delete all printed files?')) return;
 post('/api/clean-printed');
}

document.getElementById('view').addEventListener('click', function(e) {
 var btn = e.target.closest('[data-action]');
 if (btn) {
  var id = encodeURIComponent(btn.dataset.id);
  if (btn.dataset.action === 'print') {
   btn.disabled = true;
   post('/api/files/' + id + '/print');
  } else if (btn.dataset.action === 'delete' && confirm('Delete this file?')) {
   post('/api/files/' + id, {method: 'DELETE'});
  }
  return;
 }
 var notice = e.target.closest('[data-notice]');
 if (notice) post('/api/notices/' + encodeURIComponent(notice.dataset.notice) + '/dismiss');
});

document.getElementById('upload').addEventListener('submit', function(e) {
 e.preventDefault();
 var form = e.target;
 post('/api/upload', {body: new FormData(form)}).then(function() { form.reset(); });
});

function esc(s) {
 if (!s) return '';
 var d = document.createElement('div');
 d.appendChild(document.createTextNode(String(s)));
 return d.innerHTML;
}

tick();
timer = setInterval(tick, 2000);
</script>
</body>
</html>`
