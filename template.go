package main

import "html/template"

const (
	placeholderID   = "loaderSection"
	fallbackMessage = "The document is still being prepared. Please come back in 10 minutes."
	reloadLabel     = "Reload the page"
)

// shellTmpl is the page that hosts the placeholder. With Bootstrap set it
// forwards the location fragment to /view.
var shellTmpl = template.Must(template.New("shell").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8">
  <title>Document Viewer</title>
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <script src="{{.SweetAlertSrc}}"></script>
  <style>
    html, body { margin: 0; height: 100%; }
    body { font-family: system-ui, -apple-system, Segoe UI, Roboto, sans-serif; }
    embed { display: block; border: 0; height: 100vh; }
    #loaderSection { display: flex; align-items: center; justify-content: center; height: 100%; color: #666; }
    #reloadLink { display: block; padding: 24px; text-align: center; }
  </style>
</head>
<body>
  <div id="loaderSection">Loading documents...</div>
{{- if .Bootstrap}}
<script>
  (function () {
    var hash = window.location.hash;
    if (!hash || hash.length < 2) {
      window.location.href = '404.html';
      return;
    }
    var q = new URLSearchParams({ r: hash, w: String(window.innerWidth), h: String(window.innerHeight) });
    window.location.replace('view?' + q.toString());
  })();
</script>
{{- end}}
</body>
</html>
`))

type shellData struct {
	SweetAlertSrc string
	Bootstrap     bool
}

var embedTmpl = template.Must(template.New("embed").Parse(
	`<embed id="documentViewer" type="application/pdf" src="{{.Src}}" width="100%" height="100%">`))

var canvasTmpl = template.Must(template.New("canvas").Parse(`<div id="canvasContainer" data-src="{{.Src}}" data-pages="{{len .Pages}}" style="position:fixed; top:0; left:0; width:100%; height:100%; z-index:9999; overflow-y:scroll; background:#525659;">
{{- range .Pages}}
  <canvas data-page="{{.Number}}" width="{{.Width}}" height="{{.Height}}" style="display:block; margin:0 auto 8px auto; background:#fff;"></canvas>
{{- end}}
</div>
<script src="{{.PDFJSSrc}}"></script>
<script>
  (function () {
    var container = document.getElementById('canvasContainer');
    var pdfjsLib = window['pdfjs-dist/build/pdf'];
    pdfjsLib.GlobalWorkerOptions.workerSrc = {{.WorkerSrc}};
    pdfjsLib.getDocument({{.Src}}).promise.then(function (pdf) {
      container.querySelectorAll('canvas[data-page]').forEach(function (canvas) {
        var n = parseInt(canvas.getAttribute('data-page'), 10);
        pdf.getPage(n).then(function (page) {
          var natural = page.getViewport({ scale: 1 });
          var viewport = page.getViewport({ scale: canvas.width / natural.width });
          page.render({ canvasContext: canvas.getContext('2d'), viewport: viewport });
        });
      });
    }).catch(function (err) {
      console.error('page rendering failed', err);
    });
    var fs = container.requestFullscreen || container.webkitRequestFullscreen;
    if (fs) {
      try {
        var p = fs.call(container);
        if (p && p.catch) { p.catch(function () {}); }
      } catch (e) {}
    }
  })();
</script>`))

var fallbackTmpl = template.Must(template.New("fallback").Parse(`<a id="reloadLink" href="#" onclick="window.location.reload(); return false;">{{.Label}}</a>
<script>
  (function () {
    var text = {{.Message}};
    if (window.Swal) {
      Swal.fire({ icon: 'error', title: 'Oops...', text: text });
    } else {
      window.alert(text);
    }
  })();
</script>`))

var notFoundPage = []byte(`<!doctype html>
<html>
<head>
  <meta charset="utf-8">
  <title>Not found</title>
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <style>
    body { font-family: system-ui, -apple-system, Segoe UI, Roboto, sans-serif; margin: 48px; color: #111; }
    .muted { color: #666; }
  </style>
</head>
<body>
  <h1>404</h1>
  <p class="muted">This link does not point at any documents.</p>
</body>
</html>
`)

func fallbackMarkup() template.HTML {
	// static data: execution cannot fail
	out, _ := execFragment(fallbackTmpl, struct{ Label, Message string }{reloadLabel, fallbackMessage})
	return out
}
