package http

import nethttp "net/http"

func dashboardPageHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.URL.Path != "/" {
		nethttp.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(nethttp.StatusOK)
	_, _ = w.Write([]byte(dashboardHTML))
}

func faviconHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	w.WriteHeader(nethttp.StatusNoContent)
}

const dashboardHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>NDR Export Dashboard</title>
  <style>
    @import url("https://fonts.googleapis.com/css?family=Open+Sans:300,400,600,700");

    :root {
      --green: #1b7340;
      --green-2: #239a54;
      --bg: #f7f7f7;
      --paper: #fff;
      --text: #333;
      --muted: #777;
      --line: #ddd;
      --line-soft: #eee;
      --head: #f0f0f0;
      --ok-bg: #dff0d8;
      --ok-text: #3c763d;
      --warn-bg: #fcf8e3;
      --warn-text: #8a6d3b;
      --bad-bg: #f2dede;
      --bad-text: #a94442;
      --info-bg: #d9edf7;
      --info-text: #31708f;
    }

    * { box-sizing: border-box; }

    body {
      margin: 0;
      background: var(--bg);
      color: var(--text);
      font-family: "Open Sans", "Helvetica Neue", Helvetica, Arial, sans-serif;
      font-size: 14px;
      line-height: 1.42857143;
    }

    a { color: #428bca; text-decoration: none; }
    a:hover { color: #2a6496; text-decoration: underline; }

    header {
      background: linear-gradient(to right, var(--green) 0, var(--green-2) 100%);
      border-bottom: 1px solid #135731;
      box-shadow: 0 2px 5px rgba(0, 0, 0, 0.15);
    }

    .container {
      margin-right: auto;
      margin-left: auto;
      padding-left: 15px;
      padding-right: 15px;
      width: 100%;
      max-width: 1480px;
    }

    .header-inner {
      min-height: 70px;
      display: flex;
      align-items: center;
      justify-content: space-between;
      gap: 16px;
    }

    .navbar-brand {
      color: #fff;
      font-size: 22px;
      font-weight: 300;
    }

    .navbar-brand strong { font-weight: 600; }

    .navbar-note {
      color: rgba(255, 255, 255, 0.88);
      font-size: 13px;
      font-weight: 300;
      text-align: right;
    }

    main { padding: 18px 0 32px; }

    .panel {
      background: var(--paper);
      border: 1px solid var(--line);
      border-radius: 4px;
      margin-bottom: 16px;
    }

    .panel-head {
      padding: 10px 14px;
      border-bottom: 1px solid var(--line-soft);
      background: var(--head);
      font-weight: 600;
      display: flex;
      justify-content: space-between;
      align-items: center;
    }

    .panel-body { padding: 14px; }

    .form-row {
      display: flex;
      flex-wrap: wrap;
      gap: 12px;
      align-items: flex-end;
    }

    .form-group { display: flex; flex-direction: column; gap: 4px; }
    .form-group label { font-size: 12px; color: var(--muted); }

    input[type="text"], input[type="date"], input[type="email"], input[type="password"], select {
      border: 1px solid #ccc;
      border-radius: 3px;
      padding: 6px 8px;
      font-size: 13px;
      min-width: 180px;
    }

    input#identifiers { min-width: 320px; }

    .btn {
      border: 1px solid transparent;
      border-radius: 3px;
      padding: 6px 12px;
      font-size: 13px;
      cursor: pointer;
      background: #e8e8e8;
      color: var(--text);
    }
    .btn:hover { filter: brightness(0.96); }
    .btn-primary { background: var(--green); color: #fff; }
    .btn-danger { background: #c9302c; color: #fff; }
    .btn-warn { background: #ec971f; color: #fff; }
    .btn[disabled] { opacity: 0.5; cursor: not-allowed; }

    table { width: 100%; border-collapse: collapse; }
    th, td {
      border-bottom: 1px solid var(--line-soft);
      padding: 8px 10px;
      text-align: left;
      font-size: 13px;
      vertical-align: top;
    }
    th { background: var(--head); font-weight: 600; }
    tr:hover td { background: #fafafa; }

    .tag {
      display: inline-block;
      padding: 2px 8px;
      border-radius: 10px;
      font-size: 12px;
      white-space: nowrap;
    }
    .tag-success { background: var(--ok-bg); color: var(--ok-text); }
    .tag-warning { background: var(--warn-bg); color: var(--warn-text); }
    .tag-error { background: var(--bad-bg); color: var(--bad-text); }
    .tag-info { background: var(--info-bg); color: var(--info-text); }
    .tag-neutral { background: #eee; color: #555; }

    .progress {
      width: 140px;
      height: 14px;
      border: 1px solid var(--line);
      border-radius: 3px;
      background: #f3f3f3;
      overflow: hidden;
      display: inline-block;
      vertical-align: middle;
    }
    .progress > span {
      display: block;
      height: 100%;
      background: var(--green-2);
    }

    .actions { display: flex; flex-wrap: wrap; gap: 4px; }
    .actions .btn { padding: 3px 8px; font-size: 12px; }

    .muted { color: var(--muted); font-size: 12px; }

    .toggle-row { display: flex; align-items: center; gap: 8px; margin-bottom: 10px; }

    .overlay {
      position: fixed;
      inset: 0;
      background: rgba(0, 0, 0, 0.45);
      display: none;
      align-items: center;
      justify-content: center;
      z-index: 50;
    }
    .overlay.open { display: flex; }
    .dialog {
      background: var(--paper);
      border-radius: 4px;
      min-width: 360px;
      max-width: 640px;
      max-height: 80vh;
      overflow: auto;
      box-shadow: 0 6px 24px rgba(0, 0, 0, 0.3);
    }
    .dialog-head {
      padding: 10px 14px;
      border-bottom: 1px solid var(--line-soft);
      font-weight: 600;
      display: flex;
      justify-content: space-between;
    }
    .dialog-body { padding: 14px; }
    .dialog-close { cursor: pointer; color: var(--muted); }

    #alert-box {
      position: fixed;
      top: 12px;
      right: 12px;
      z-index: 60;
      display: flex;
      flex-direction: column;
      gap: 6px;
    }
    .alert {
      border-radius: 4px;
      padding: 8px 14px;
      font-size: 13px;
      box-shadow: 0 2px 8px rgba(0, 0, 0, 0.2);
    }
    .alert-success { background: var(--ok-bg); color: var(--ok-text); }
    .alert-error { background: var(--bad-bg); color: var(--bad-text); }
    .alert-info { background: var(--info-bg); color: var(--info-text); }
  </style>
</head>
<body>
  <header>
    <div class="container header-inner">
      <div class="navbar-brand">NDR <strong>Export Dashboard</strong></div>
      <div class="navbar-note" id="header-note">loading&hellip;</div>
    </div>
  </header>

  <main class="container">
    <div class="panel">
      <div class="panel-head">
        <span>Generate NDR export</span>
        <span class="muted" id="last-run-note"></span>
      </div>
      <div class="panel-body">
        <div class="form-row">
          <div class="form-group">
            <label for="identifiers">Patient identifiers</label>
            <input type="text" id="identifiers" placeholder="comma separated patient identifiers or Ids" />
          </div>
          <div class="form-group">
            <label for="from-date">From date</label>
            <input type="date" id="from-date" />
          </div>
          <div class="form-group">
            <label for="format">Format</label>
            <select id="format">
              <option value="xml">XML</option>
              <option value="json">JSON</option>
            </select>
          </div>
          <button class="btn btn-primary" id="btn-export">Generate</button>
          <button class="btn" id="btn-save-preset">Save as preset</button>
          <select id="preset-select" style="display:none"><option value="">apply preset&hellip;</option></select>
        </div>
      </div>
    </div>

    <div class="panel">
      <div class="panel-head">
        <span>Export files</span>
        <span class="muted" id="refresh-note"></span>
      </div>
      <div class="panel-body">
        <div class="toggle-row">
          <label><input type="checkbox" id="custom-toggle" /> show custom (manual) exports</label>
          <button class="btn" id="btn-refresh">Refresh</button>
          <button class="btn" id="btn-push-batch">Push batch data</button>
        </div>
        <table>
          <thead>
            <tr>
              <th>#</th>
              <th>Name</th>
              <th>Owner</th>
              <th>Started</th>
              <th>Ended</th>
              <th>Status</th>
              <th>Progress</th>
              <th>Actions</th>
            </tr>
          </thead>
          <tbody id="file-rows">
            <tr><td colspan="8" class="muted">loading&hellip;</td></tr>
          </tbody>
        </table>
      </div>
    </div>

    <div class="panel">
      <div class="panel-head"><span>Services</span></div>
      <div class="panel-body" id="services-body"><span class="muted">loading&hellip;</span></div>
    </div>
  </main>

  <div class="overlay" id="auth-overlay">
    <div class="dialog">
      <div class="dialog-head">
        <span>NDR service authentication</span>
        <span class="dialog-close" data-close="auth-overlay">&times;</span>
      </div>
      <div class="dialog-body">
        <div class="form-row">
          <div class="form-group" id="auth-email-group">
            <label for="auth-email">Email</label>
            <input type="email" id="auth-email" />
          </div>
          <div class="form-group">
            <label for="auth-password">Password</label>
            <input type="password" id="auth-password" />
          </div>
          <button class="btn btn-primary" id="btn-auth">Sign in</button>
        </div>
      </div>
    </div>
  </div>

  <div class="overlay" id="batches-overlay">
    <div class="dialog">
      <div class="dialog-head">
        <span>Batch identifiers</span>
        <span class="dialog-close" data-close="batches-overlay">&times;</span>
      </div>
      <div class="dialog-body" id="batches-body"></div>
    </div>
  </div>

  <div class="overlay" id="errorlogs-overlay">
    <div class="dialog">
      <div class="dialog-head">
        <span>Error logs</span>
        <span class="dialog-close" data-close="errorlogs-overlay">&times;</span>
      </div>
      <div class="dialog-body" id="errorlogs-body"></div>
    </div>
  </div>

  <div id="alert-box"></div>

  <script>
    "use strict";

    var POLL_MS = 10000;
    var pollTimer = null;

    function $(id) { return document.getElementById(id); }

    function alertMsg(kind, text) {
      var el = document.createElement("div");
      el.className = "alert alert-" + kind;
      el.textContent = text;
      $("alert-box").appendChild(el);
      setTimeout(function () { el.remove(); }, 6000);
    }

    function api(method, path, body) {
      var opts = { method: method, headers: {} };
      if (body !== undefined) {
        opts.headers["Content-Type"] = "application/json";
        opts.body = JSON.stringify(body);
      }
      return fetch(path, opts).then(function (resp) {
        return resp.json().then(function (payload) {
          return { status: resp.status, payload: payload };
        });
      });
    }

    function esc(s) {
      var div = document.createElement("div");
      div.textContent = s == null ? "" : String(s);
      return div.innerHTML;
    }

    var actionLabels = {
      download: "Download",
      downloadErrorFile: "Error file",
      downloadErrorCsv: "Error CSV",
      "delete": "Delete",
      restart: "Restart",
      resume: "Resume",
      pause: "Pause",
      viewBatches: "Batches",
      viewErrorLogs: "Error logs"
    };

    function renderRow(f) {
      var cells = [];
      cells.push("<td>" + esc(f.number) + "</td>");
      cells.push("<td>" + esc(f.name) + "</td>");
      cells.push("<td>" + esc(f.owner) + "</td>");
      cells.push("<td>" + esc(f.dateStarted) + "</td>");
      cells.push("<td>" + esc(f.dateEnded) + "</td>");
      cells.push('<td><span class="tag tag-' + esc(f.statusTag) + '">' + esc(f.status) + "</span></td>");
      if (f.progressPct) {
        cells.push('<td><span class="progress"><span style="width:' + esc(f.progressPct) + '%"></span></span> ' +
          esc(f.progressPct) + "% <span class=\"muted\">(" + esc(f.processed) + "/" + esc(f.total) + ")</span></td>");
      } else {
        cells.push('<td><span class="muted">' + esc(f.processed) + "/" + esc(f.total) + "</span></td>");
      }

      var buttons = (f.actions || []).map(function (a) {
        var cls = "btn";
        if (a === "delete") { cls += " btn-danger"; }
        if (a === "pause" || a === "restart") { cls += " btn-warn"; }
        return '<button class="' + cls + '" data-action="' + esc(a) + '" data-id="' + esc(f.number) + '">' +
          (actionLabels[a] || esc(a)) + "</button>";
      }).join("");
      cells.push('<td><div class="actions">' + buttons + "</div></td>");

      var tr = document.createElement("tr");
      tr.innerHTML = cells.join("");
      tr.dataset.download = f.downloadUrl || "";
      tr.dataset.errorDownload = f.errorDownloadUrl || "";
      return tr;
    }

    function renderSnapshot(snap) {
      var tbody = $("file-rows");
      tbody.innerHTML = "";
      if (!snap.files || snap.files.length === 0) {
        tbody.innerHTML = '<tr><td colspan="8" class="muted">no export files</td></tr>';
      } else {
        snap.files.forEach(function (f) { tbody.appendChild(renderRow(f)); });
      }

      $("custom-toggle").checked = !!snap.custom;
      $("format").value = snap.format || "xml";
      if (!$("from-date").value && snap.defaultFromDate) {
        $("from-date").value = snap.defaultFromDate;
      }
      $("last-run-note").textContent = snap.lastRunDate ? ("last run: " + snap.lastRunDate) : "";
      $("header-note").textContent = snap.processing
        ? ("processing " + snap.processingCount + " export(s)")
        : "idle";
      $("refresh-note").textContent = snap.refreshedAt
        ? ("updated " + new Date(snap.refreshedAt).toLocaleTimeString())
        : "";
    }

    function loadSnapshot() {
      return api("GET", "/api/v1/dashboard").then(function (res) {
        if (res.status === 200 && res.payload.data) {
          renderSnapshot(res.payload.data);
        }
      });
    }

    function blockingRefresh() {
      return api("POST", "/api/v1/dashboard/refresh").then(function (res) {
        if (res.status === 200 && res.payload.data) {
          renderSnapshot(res.payload.data);
        } else if (res.payload && res.payload.error) {
          alertMsg("error", res.payload.error);
        }
      });
    }

    function armPolling() {
      if (pollTimer) { clearInterval(pollTimer); }
      pollTimer = setInterval(loadSnapshot, POLL_MS);
    }

    function runFileAction(action, id) {
      return api("POST", "/api/v1/files/" + id + "/" + action).then(function (res) {
        var out = res.payload || {};
        alertMsg(out.ok ? "success" : "error", out.message || (out.ok ? "done" : "action failed"));
        return loadSnapshot();
      });
    }

    function openBatches(id) {
      api("GET", "/api/v1/files/" + id + "/batches").then(function (res) {
        var ids = (res.payload && res.payload.data) || [];
        $("batches-body").innerHTML = ids.length
          ? "<ul>" + ids.map(function (b) { return "<li>" + esc(b) + "</li>"; }).join("") + "</ul>"
          : '<span class="muted">no batch identifiers</span>';
        $("batches-overlay").classList.add("open");
      });
    }

    function openErrorLogs(id) {
      api("GET", "/api/v1/files/" + id + "/error-logs").then(function (res) {
        if (res.status !== 200) {
          alertMsg("error", (res.payload && res.payload.error) || "failed to fetch error logs");
          return;
        }
        var logs = (res.payload && res.payload.data) || [];
        $("errorlogs-body").innerHTML = logs.length
          ? "<table><thead><tr><th>File</th><th>Patient</th><th>Message</th></tr></thead><tbody>" +
            logs.map(function (l) {
              return "<tr><td>" + esc(l.filename) + "</td><td>" + esc(l.patientId) + "</td><td>" + esc(l.errorMessage) + "</td></tr>";
            }).join("") + "</tbody></table>"
          : '<span class="muted">no error logs</span>';
        $("errorlogs-overlay").classList.add("open");
      });
    }

    $("file-rows").addEventListener("click", function (ev) {
      var btn = ev.target.closest("button[data-action]");
      if (!btn) { return; }
      var action = btn.dataset.action;
      var id = btn.dataset.id;
      var row = btn.closest("tr");

      if (action === "download") {
        if (row.dataset.download) { window.location = row.dataset.download; }
        return;
      }
      if (action === "downloadErrorFile" || action === "downloadErrorCsv") {
        if (row.dataset.errorDownload) { window.location = row.dataset.errorDownload; }
        return;
      }
      if (action === "viewBatches") { openBatches(id); return; }
      if (action === "viewErrorLogs") { openErrorLogs(id); return; }
      if (action === "delete" && !window.confirm("Delete this export file?")) { return; }
      runFileAction(action, id);
    });

    $("btn-refresh").addEventListener("click", blockingRefresh);

    $("custom-toggle").addEventListener("change", function () {
      api("POST", "/api/v1/dashboard/custom", { custom: $("custom-toggle").checked }).then(function (res) {
        if (res.status === 200 && res.payload.data) {
          renderSnapshot(res.payload.data);
        } else if (res.payload && res.payload.error) {
          alertMsg("error", res.payload.error);
        }
        armPolling();
      });
    });

    $("format").addEventListener("change", function () {
      api("POST", "/api/v1/format", { format: $("format").value }).then(function (res) {
        var d = (res.payload && res.payload.data) || {};
        $("format").value = d.format || "xml";
        if (d.message) { alertMsg("error", d.message); }
        if (d.authRequired) {
          $("auth-email-group").style.display = d.credentialsProvided ? "none" : "";
          $("auth-overlay").classList.add("open");
        }
      });
    });

    $("btn-auth").addEventListener("click", function () {
      api("POST", "/api/v1/auth", {
        email: $("auth-email").value,
        password: $("auth-password").value
      }).then(function (res) {
        var out = res.payload || {};
        alertMsg(out.ok ? "success" : "error", out.message || "");
        if (out.ok) {
          $("auth-overlay").classList.remove("open");
          $("auth-password").value = "";
        }
      });
    });

    $("btn-export").addEventListener("click", function () {
      $("btn-export").disabled = true;
      api("POST", "/api/v1/export", {
        identifiers: $("identifiers").value,
        fromDate: $("from-date").value,
        format: $("format").value
      }).then(function (res) {
        var out = res.payload || {};
        if (out.downloadUrl) {
          window.location = out.downloadUrl;
        } else if (out.deferred) {
          alertMsg("info", out.message);
        } else {
          alertMsg(out.ok ? "success" : "error", out.message || "export failed");
        }
        return loadSnapshot();
      }).finally(function () {
        $("btn-export").disabled = false;
      });
    });

    $("btn-push-batch").addEventListener("click", function () {
      api("POST", "/api/v1/push-batch").then(function (res) {
        if (res.status !== 200) {
          alertMsg("error", (res.payload && res.payload.error) || "failed to push batch data");
          return;
        }
        var msg = res.payload && res.payload.data && res.payload.data.message;
        alertMsg("success", msg || "batch data pushed");
      });
    });

    function loadPresets() {
      api("GET", "/api/v1/presets").then(function (res) {
        if (res.status !== 200) { return; }
        var items = (res.payload && res.payload.data) || [];
        if (items.length === 0) { return; }
        var sel = $("preset-select");
        sel.style.display = "";
        sel.innerHTML = '<option value="">apply preset&hellip;</option>' + items.map(function (p) {
          return '<option value="' + esc(p.id) + '" data-identifiers="' + esc(p.identifiers) +
            '" data-from="' + esc(p.from_date) + '" data-format="' + esc(p.format) + '">' + esc(p.name) + "</option>";
        }).join("");
      });
    }

    $("preset-select").addEventListener("change", function () {
      var opt = this.options[this.selectedIndex];
      if (!opt || !opt.value) { return; }
      $("identifiers").value = opt.dataset.identifiers || "";
      if (opt.dataset.from) { $("from-date").value = opt.dataset.from; }
      if (opt.dataset.format) {
        $("format").value = opt.dataset.format;
        $("format").dispatchEvent(new Event("change"));
      }
    });

    $("btn-save-preset").addEventListener("click", function () {
      var name = window.prompt("Preset name");
      if (!name) { return; }
      api("POST", "/api/v1/presets", {
        name: name,
        identifiers: $("identifiers").value,
        from_date: $("from-date").value,
        format: $("format").value
      }).then(function (res) {
        if (res.status === 200) {
          alertMsg("success", "preset saved");
          loadPresets();
        } else {
          alertMsg("error", (res.payload && res.payload.error) || "failed to save preset");
        }
      });
    });

    function loadServices() {
      api("GET", "/api/v1/status/services").then(function (res) {
        var services = (res.payload && res.payload.services) || {};
        var parts = Object.keys(services).sort().map(function (name) {
          var s = services[name];
          var tag = s.enabled ? (s.ok ? "tag-success" : "tag-error") : "tag-neutral";
          var label = s.enabled ? (s.ok ? "up" : "down") : "disabled";
          return '<span class="tag ' + tag + '">' + esc(name) + ": " + label + "</span>";
        });
        $("services-body").innerHTML = parts.join(" ");
      });
    }

    document.querySelectorAll(".dialog-close").forEach(function (el) {
      el.addEventListener("click", function () {
        $(el.dataset.close).classList.remove("open");
      });
    });

    blockingRefresh();
    loadPresets();
    loadServices();
    setInterval(loadServices, 30000);
    armPolling();
  </script>
</body>
</html>
`
