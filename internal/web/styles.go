package web

const layoutStyles = `<style>
:root {
  color-scheme: light;
  --bg: #f6f1e8;
  --bg-accent: #e2eef0;
  --ink: #1f262d;
  --muted: #5c6c73;
  --card: rgba(255, 255, 255, 0.78);
  --stroke: rgba(31, 38, 45, 0.12);
  --accent: #2f6f6d;
  --accent-dark: #1e4f52;
  --shadow: 0 16px 40px rgba(15, 23, 28, 0.12);
}

* {
  box-sizing: border-box;
}

body {
  margin: 0;
  min-height: 100vh;
  font-family: "Iowan Old Style", "Palatino Linotype", "Book Antiqua", serif;
  color: var(--ink);
  background: radial-gradient(circle at 20% 20%, var(--bg-accent), transparent 45%),
    linear-gradient(135deg, #fbf7ef, var(--bg));
}

.shell {
  max-width: 860px;
  margin: 0 auto;
  padding: 48px 24px 72px;
  display: grid;
  gap: 24px;
}

.page-header h1 {
  margin: 8px 0 8px;
  font-size: clamp(2rem, 3vw, 2.6rem);
  letter-spacing: -0.02em;
}

.eyebrow {
  text-transform: uppercase;
  letter-spacing: 0.24em;
  font-size: 0.72rem;
  color: var(--muted);
  margin: 0;
}

.subhead {
  margin: 0;
  color: var(--muted);
  font-size: 1rem;
}

.card {
  background: var(--card);
  border: 1px solid var(--stroke);
  border-radius: 16px;
  padding: 20px 22px;
  box-shadow: var(--shadow);
  backdrop-filter: blur(6px);
}

input {
  flex: 1;
  min-width: 200px;
  border-radius: 10px;
  border: 1px solid var(--stroke);
  padding: 10px 12px;
  font-size: 1rem;
  font-family: inherit;
}

button {
  border: none;
  border-radius: 999px;
  padding: 10px 18px;
  background: var(--accent);
  color: white;
  font-size: 0.95rem;
  cursor: pointer;
  font-family: inherit;
}

button:hover {
  background: var(--accent-dark);
}

.ghost {
  background: transparent;
  border: 1px solid var(--stroke);
  color: var(--ink);
}

.ghost:hover {
  background: rgba(47, 111, 109, 0.12);
}

.stats-grid {
  display: grid;
  gap: 16px;
  grid-template-columns: repeat(auto-fit, minmax(140px, 1fr));
  margin-top: 12px;
}

.stat-label {
  margin: 0;
  font-size: 0.85rem;
  color: var(--muted);
  text-transform: uppercase;
  letter-spacing: 0.1em;
}

.stat-value {
  margin: 6px 0 0;
  font-size: 1.5rem;
}

.progress {
  margin: 0;
  color: var(--muted);
}

.page-actions {
  display: flex;
  gap: 16px;
  flex-wrap: wrap;
}

.back-link {
  color: var(--accent);
  text-decoration: none;
  font-weight: 600;
}

.back-link:hover {
  text-decoration: underline;
}

.empty {
  margin: 0;
  color: var(--muted);
}

select {
  border-radius: 10px;
  border: 1px solid var(--stroke);
  padding: 10px 12px;
  font-size: 1rem;
  font-family: inherit;
  background: white;
}

.table-wrap {
  width: 100%;
  overflow-x: auto;
}

.data-table {
  width: 100%;
  border-collapse: collapse;
  min-width: 480px;
}

.data-table th,
.data-table td {
  text-align: left;
  padding: 12px 10px;
  border-bottom: 1px solid var(--stroke);
}

.data-table th {
  font-size: 0.8rem;
  letter-spacing: 0.08em;
  text-transform: uppercase;
  color: var(--muted);
}

.mono {
  font-family: "SFMono-Regular", "Fira Mono", "Source Code Pro", monospace;
}

.muted {
  color: var(--muted);
}

.tool-form {
  display: flex;
  gap: 12px;
  flex-wrap: wrap;
  align-items: end;
}

.tool-grid {
  display: grid;
  gap: 16px;
  grid-template-columns: repeat(auto-fit, minmax(220px, 1fr));
}

.tool-grid a {
  display: block;
  color: var(--ink);
  text-decoration: none;
}

.tool-grid a:hover h2 {
  text-decoration: underline;
}

.error {
  margin: 0;
  color: #a33a2c;
  font-weight: 600;
}

.badge {
  display: inline-block;
  border-radius: 999px;
  padding: 2px 10px;
  font-size: 0.8rem;
  text-transform: uppercase;
  letter-spacing: 0.06em;
  border: 1px solid var(--stroke);
}

.badge-open,
.badge-good,
.badge-success,
.badge-excellent,
.badge-complete {
  background: #dcefe3;
  color: #1f5d3a;
}

.badge-filtered,
.badge-fair,
.badge-running {
  background: #f6ecd0;
  color: #7a5a12;
}

.badge-closed,
.badge-poor,
.badge-timeout,
.badge-failed,
.badge-stopped {
  background: #f5dcd8;
  color: #8a2d22;
}

.bar {
  height: 10px;
  border-radius: 999px;
  background: var(--stroke);
  overflow: hidden;
}

.bar span {
  display: block;
  height: 100%;
  background: var(--accent);
}
</style>`
