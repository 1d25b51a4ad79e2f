package webui

const defaultIndexHTML = `<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>PromptBlocks</title>
  <style>
    body { font-family: "Segoe UI", sans-serif; margin: 0; background: linear-gradient(145deg,#f7fafc,#e9eef7); color: #1f2937; }
    .wrap { display: grid; grid-template-columns: 220px 1fr 1fr; gap: 16px; padding: 20px; }
    .panel { background: #fff; border-radius: 12px; box-shadow: 0 8px 30px rgba(15,23,42,.08); padding: 16px; }
    .item { padding: 6px 8px; border-radius: 6px; cursor: pointer; }
    .item.active, .item:hover { background: #e6fffa; }
    .block { border: 1px solid #d1d5db; border-radius: 8px; padding: 10px; margin-bottom: 10px; background: #f9fafb; }
    .block h4 { margin: 0 0 6px; display: flex; justify-content: space-between; }
    textarea, input, select { width: 100%; box-sizing: border-box; padding: 6px; border: 1px solid #cbd5e1; border-radius: 6px; font: inherit; }
    #preview { white-space: pre-wrap; min-height: 320px; border: 1px solid #d1d5db; border-radius: 8px; padding: 12px; background: #f9fafb; }
    button { padding: 6px 10px; border: 0; border-radius: 6px; background: #0f766e; color: #fff; cursor: pointer; margin: 2px; }
    button.ghost { background: transparent; color: #0f766e; }
    small { color: #6b7280; }
  </style>
</head>
<body>
  <div class="wrap">
    <div class="panel">
      <h3>Programs</h3>
      <button id="new">New program</button>
      <div id="programs"></div>
      <h3>Library</h3>
      <div id="library"></div>
    </div>
    <div class="panel">
      <input id="name" placeholder="Program name" />
      <div id="canvas" style="margin-top:10px"></div>
    </div>
    <div class="panel">
      <h3>Compiled prompt</h3>
      <small id="stats"></small>
      <div id="preview"></div>
      <button id="copy">Copy</button>
    </div>
  </div>
  <script>
    let current = null, socket = null, library = [];
    const $ = (id) => document.getElementById(id);
    const api = (path, opts) => fetch(path, opts).then(r => r.json());
    const uid = () => (crypto.randomUUID ? crypto.randomUUID() : String(Date.now() + Math.random()));
    const defaults = { role:{role:''}, task:{task:''}, context:{context:''}, constraints:{items:['']}, tone:{tone:''}, output_format:{format:'plain', schema:''}, examples:{examples:[]} };

    function field(value, onInput, multi) {
      const el = document.createElement(multi ? 'textarea' : 'input');
      el.value = value || '';
      el.addEventListener('input', () => { onInput(el.value); push(); });
      return el;
    }

    function renderBlock(b, i) {
      const box = document.createElement('div');
      box.className = 'block';
      const meta = library.find(m => m.type === b.type) || { label: b.type };
      const head = document.createElement('h4');
      head.textContent = meta.label;
      const tools = document.createElement('span');
      [['up', () => move(i, i - 1)], ['down', () => move(i, i + 1)], ['copy', () => dup(i)], ['x', () => remove(i)]].forEach(([t, fn]) => {
        const btn = document.createElement('button'); btn.className = 'ghost'; btn.textContent = t; btn.onclick = fn; tools.appendChild(btn);
      });
      head.appendChild(tools);
      box.appendChild(head);
      const d = b.data;
      switch (b.type) {
        case 'role': case 'task': case 'context': case 'tone':
          box.appendChild(field(d[b.type], v => d[b.type] = v, b.type === 'context' || b.type === 'task'));
          break;
        case 'constraints':
          d.items.forEach((it, k) => box.appendChild(field(it, v => d.items[k] = v)));
          box.appendChild(button('+ constraint', () => { d.items.push(''); render(); push(); }));
          break;
        case 'output_format': {
          const sel = document.createElement('select');
          ['plain', 'bullet', 'json'].forEach(f => { const o = document.createElement('option'); o.value = f; o.textContent = f; sel.appendChild(o); });
          sel.value = d.format;
          sel.onchange = () => { d.format = sel.value; render(); push(); };
          box.appendChild(sel);
          if (d.format === 'json') box.appendChild(field(d.schema, v => d.schema = v, true));
          break;
        }
        case 'examples':
          d.examples.forEach(ex => {
            box.appendChild(field(ex.input, v => ex.input = v));
            box.appendChild(field(ex.output, v => ex.output = v));
          });
          box.appendChild(button('+ example', () => { d.examples.push({input:'', output:''}); render(); push(); }));
          break;
      }
      return box;
    }

    function button(text, fn) { const b = document.createElement('button'); b.textContent = text; b.onclick = fn; return b; }
    function render() {
      const canvas = $('canvas'); canvas.innerHTML = '';
      if (!current) return;
      $('name').value = current.name;
      current.blocks.forEach((b, i) => canvas.appendChild(renderBlock(b, i)));
    }
    function move(i, j) { if (j < 0 || j >= current.blocks.length) return; const [b] = current.blocks.splice(i, 1); current.blocks.splice(j, 0, b); render(); push(); }
    function dup(i) { const c = JSON.parse(JSON.stringify(current.blocks[i])); c.id = uid(); current.blocks.splice(i + 1, 0, c); render(); push(); }
    function remove(i) { current.blocks.splice(i, 1); render(); push(); }
    function add(type) { if (!current) return; current.blocks.push({ id: uid(), type, data: JSON.parse(JSON.stringify(defaults[type])) }); render(); push(); }
    function push() { if (socket && socket.readyState === 1) socket.send(JSON.stringify({ blocks: current.blocks, name: current.name })); }

    function open(p) {
      current = p;
      if (socket) socket.close();
      const proto = location.protocol === 'https:' ? 'wss' : 'ws';
      socket = new WebSocket(proto + '://' + location.host + '/api/programs/' + p.id + '/live');
      socket.onmessage = (ev) => {
        const msg = JSON.parse(ev.data);
        $('preview').textContent = msg.prompt || '';
        $('stats').textContent = msg.error ? msg.error : msg.stats.chars + ' chars, ' + msg.stats.words + ' words, ' + msg.stats.lines + ' lines';
      };
      render();
      loadPrograms();
    }

    async function loadPrograms() {
      const list = await api('/api/programs');
      const el = $('programs'); el.innerHTML = '';
      list.forEach(p => {
        const it = document.createElement('div');
        it.className = 'item' + (current && current.id === p.id ? ' active' : '');
        it.textContent = p.name + ' (' + p.category + ')';
        it.onclick = () => open(p);
        el.appendChild(it);
      });
    }

    $('new').onclick = async () => open(await api('/api/programs', { method: 'POST', body: '{}' }));
    $('name').oninput = () => { if (current) { current.name = $('name').value; push(); } };
    $('copy').onclick = () => navigator.clipboard && navigator.clipboard.writeText($('preview').textContent);

    api('/api/library').then(list => {
      library = list;
      list.forEach(m => { const b = button(m.label, () => add(m.type)); b.title = m.description; $('library').appendChild(b); });
    });
    loadPrograms();
  </script>
</body>
</html>`
