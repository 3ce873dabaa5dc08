package shell

import "html/template"

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Care Hospital</title>
</head>
<body>
<header class="navbar">
  <a class="logo" href="#home">🏥 Care Hospital</a>
  <nav>
    {{- range .Nav}}
    <a class="nav-link{{if eq . $.Active}} active{{end}}" href="{{.Hash}}" data-section="{{.}}"
      {{- if and (eq . "dashboard") (not $.UI.ShowDashboardNav)}} hidden{{end}} id="{{.}}-nav">{{.Title}}</a>
    {{- end}}
  </nav>
  <button id="login-btn" type="button"{{if not .UI.ShowLogin}} hidden{{end}}>Login</button>
  <button id="logout-btn" type="button"{{if not .UI.ShowLogout}} hidden{{end}}>Logout</button>
</header>

<main>
  {{- range .Nav}}
  <section id="{{.}}" class="section"{{if ne . $.Active}} hidden{{end}}></section>
  {{- end}}
</main>

<div id="auth-container" class="auth-modal"{{if not .UI.AuthDialogOpen}} hidden{{end}}>
  <div class="auth-tabs">
    <button type="button" class="auth-tab active" data-auth-tab="login">Login</button>
    <button type="button" class="auth-tab" data-auth-tab="register">Register</button>
  </div>
  <form id="login-form" class="auth-form" data-endpoint="/api/v1/auth/login">
    <input type="email" name="email" placeholder="Email" required>
    <input type="password" name="password" placeholder="Password" required>
    <div class="error-message" role="alert"></div>
    <button type="submit">Login</button>
  </form>
  <form id="register-form" class="auth-form" data-endpoint="/api/v1/auth/register" hidden>
    <input type="text" name="first_name" placeholder="First name" required>
    <input type="text" name="last_name" placeholder="Last name" required>
    <input type="email" name="email" placeholder="Email" required>
    <input type="password" name="password" placeholder="Password" minlength="6" required>
    <input type="tel" name="phone" placeholder="Phone">
    <input type="date" name="date_of_birth">
    <select name="gender">
      <option value="">Gender</option>
      <option value="male">Male</option>
      <option value="female">Female</option>
      <option value="other">Other</option>
    </select>
    <div class="error-message" role="alert"></div>
    <div class="success-message" role="status"></div>
    <button type="submit">Register</button>
  </form>
  <button type="button" class="auth-close">&times;</button>
</div>

<script>
(function () {
  var authenticated = {{.UI.Authenticated}};
  var hero = {{.Hero}};
  var active = {{.Active}};

  function show(id, on) { var el = document.getElementById(id); if (el) el.hidden = !on; }

  function load(el, url) {
    return fetch(url, {credentials: "same-origin"}).then(function (res) {
      return res.text().then(function (html) { el.innerHTML = html; hydrate(el); return res; });
    });
  }

  function hydrate(root) {
    root.querySelectorAll("[data-fragment]").forEach(function (el) { load(el, el.dataset.fragment); });
  }

  function navigate() {
    var name = (location.hash || "#home").slice(1);
    fetch("/fragments/section/" + encodeURIComponent(name), {credentials: "same-origin"}).then(function (res) {
      var resolved = res.headers.get("X-Section") || "home";
      if (resolved !== name) { history.replaceState(null, "", "#" + resolved); }
      return res.text().then(function (html) {
        document.querySelectorAll("main > section").forEach(function (s) { s.hidden = s.id !== resolved; s.innerHTML = ""; });
        var target = document.getElementById(resolved);
        target.innerHTML = html;
        hydrate(target);
        active = resolved;
      });
    });
  }

  function submitJSON(form) {
    var data = {};
    new FormData(form).forEach(function (v, k) { data[k] = v; });
    form.querySelectorAll("input[type=checkbox]").forEach(function (c) { data[c.name] = c.checked; });
    return fetch(form.dataset.endpoint, {
      method: form.dataset.method || "POST",
      credentials: "same-origin",
      headers: {"Content-Type": "application/json"},
      body: JSON.stringify(data)
    }).then(function (res) { return res.json().then(function (body) { return {ok: res.ok, body: body}; }); });
  }

  function flash(form, r) {
    var err = form.querySelector(".error-message"), ok = form.querySelector(".success-message");
    if (err) err.textContent = r.ok ? "" : r.body.message;
    if (ok && r.ok && r.body.flash) {
      ok.textContent = r.body.flash.message;
      setTimeout(function () { ok.textContent = ""; }, r.body.flash.hide_after_ms || 5000);
    }
  }

  document.addEventListener("submit", function (e) {
    var form = e.target;
    if (!form.dataset.endpoint) return;
    e.preventDefault();
    submitJSON(form).then(function (r) {
      flash(form, r);
      if (!r.ok) return;
      if (form.id === "register-form") { form.reset(); selectAuthTab("login"); return; }
      if (r.body.redirect) { location.hash = r.body.redirect; location.reload(); return; }
      if (form.dataset.reset === "true") form.reset();
      var panel = form.closest("[data-fragment]");
      if (panel && form.dataset.reload === "true") load(panel, panel.dataset.fragment);
    });
  });

  document.addEventListener("change", function (e) {
    var t = e.target;
    if (!t.dataset.options) return;
    var url = t.dataset.options + "?department_id=" + encodeURIComponent(t.value);
    fetch(url, {credentials: "same-origin"}).then(function (res) { return res.json(); }).then(function (opts) {
      ["doctors", "services"].forEach(function (kind) {
        var sel = t.form.querySelector("select[data-list=" + kind + "]");
        if (!sel) return;
        sel.innerHTML = "";
        opts[kind].forEach(function (o) {
          var opt = document.createElement("option"); opt.value = o.value; opt.textContent = o.label; sel.appendChild(opt);
        });
      });
    });
  });

  document.addEventListener("click", function (e) {
    var t = e.target;
    if (t.dataset.tab) {
      var panel = document.getElementById("dashboard-panel");
      panel.dataset.fragment = "/fragments/dashboard/" + t.dataset.tab;
      document.querySelectorAll(".dashboard-tab").forEach(function (b) { b.classList.toggle("active", b === t); });
      load(panel, panel.dataset.fragment);
    } else if (t.dataset.action) {
      fetch(t.dataset.action, {method: "POST", credentials: "same-origin"}).then(function () {
        var panel = document.getElementById("dashboard-panel");
        if (panel) load(panel, panel.dataset.fragment);
      });
    } else if (t.dataset.authTab) {
      selectAuthTab(t.dataset.authTab);
    }
  });

  function selectAuthTab(name) {
    show("login-form", name === "login");
    show("register-form", name === "register");
  }

  document.getElementById("login-btn").addEventListener("click", function () { show("auth-container", true); });
  document.querySelector(".auth-close").addEventListener("click", function () { show("auth-container", false); });
  document.getElementById("logout-btn").addEventListener("click", function () {
    fetch("/api/v1/auth/logout", {method: "POST", credentials: "same-origin"})
      .then(function (res) { return res.json(); })
      .then(function (body) { location.hash = body.redirect || "#home"; location.reload(); });
  });
  document.addEventListener("click", function (e) {
    if (!e.target.classList.contains("hero-book")) return;
    if (hero.open_auth_dialog) { show("auth-container", true); return; }
    location.hash = hero.hash;
    var wait = setInterval(function () {
      var tab = document.querySelector(".dashboard-tab[data-tab=" + hero.tab + "]");
      if (tab) { clearInterval(wait); tab.click(); }
    }, 50);
  });

  window.addEventListener("hashchange", navigate);
  navigate();

  if (authenticated && window.WebSocket) {
    var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/api/v1/live");
    ws.onmessage = function () {
      var panel = document.getElementById("dashboard-panel");
      if (active === "dashboard" && panel) load(panel, panel.dataset.fragment);
    };
  }
})();
</script>
</body>
</html>
`))

var sectionTmpl = template.Must(template.New("section").Parse(`
{{- define "home"}}
<div class="hero">
  <h1>Welcome to Care Hospital</h1>
  <p>Compassionate care, advanced medicine, close to home.</p>
  <button type="button" class="hero-book">Book Appointment</button>
</div>
{{- end}}

{{- define "about"}}
<h2>About Us</h2>
<p>Care Hospital brings together specialists across emergency care, cardiology, pediatrics and more
under one roof, with round-the-clock support for patients and their families.</p>
{{- end}}

{{- define "departments"}}
<h2>Our Departments</h2>
<div class="departments-grid" data-fragment="/fragments/departments"><div class="loading">Loading departments...</div></div>
{{- end}}

{{- define "doctors"}}
<h2>Our Doctors</h2>
<div class="doctors-grid" data-fragment="/fragments/doctors"><div class="loading">Loading doctors...</div></div>
{{- end}}

{{- define "services"}}
<h2>Our Services</h2>
<div class="services-grid" data-fragment="/fragments/services"><div class="loading">Loading services...</div></div>
{{- end}}

{{- define "contact"}}
<h2>Contact Us</h2>
<p><strong>Emergency:</strong> available 24/7</p>
<p><strong>Address:</strong> 123 Health Avenue</p>
<p><strong>Email:</strong> info@carehospital.example</p>
{{- end}}

{{- define "dashboard"}}
<h2>Patient Dashboard</h2>
<div class="dashboard-tabs">
  {{- range .Tabs}}
  <button type="button" class="dashboard-tab{{if eq .Name $.Tab}} active{{end}}" data-tab="{{.Name}}">{{.Label}}</button>
  {{- end}}
</div>
<div id="dashboard-panel" class="dashboard-panel" data-fragment="/fragments/dashboard/{{.Tab}}"></div>
{{- end}}
`))
