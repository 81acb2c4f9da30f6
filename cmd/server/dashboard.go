package main

import "net/http"

func dashboardHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(dashboardHTML))
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>AuthFence Dashboard</title>
    <style>
        body { font-family: system-ui, sans-serif; background: #f4f5f7; color: #222; margin: 0; padding: 24px; }
        .container { max-width: 960px; margin: 0 auto; }
        .header h1 { margin: 0; }
        .header p { margin: 4px 0 24px; color: #666; }
        .stats-grid { display: grid; grid-template-columns: repeat(4, 1fr); gap: 12px; margin-bottom: 24px; }
        .stat-card, .table-card { background: #fff; border: 1px solid #e2e4e8; border-radius: 6px; padding: 16px; }
        .stat-label { font-size: 0.8em; color: #666; text-transform: uppercase; }
        .stat-value { font-size: 1.8em; font-weight: 600; }
        .stat-value.success { color: #15803d; }
        .stat-value.danger { color: #b91c1c; }
        .stat-value.info { color: #1d4ed8; }
        .stat-value.warning { color: #a16207; }
        .stat-sublabel { font-size: 0.85em; color: #666; }
        table { width: 100%; border-collapse: collapse; }
        th, td { text-align: left; padding: 8px; border-bottom: 1px solid #eee; }
        th { font-size: 0.8em; color: #666; text-transform: uppercase; }
        .badge { padding: 2px 8px; border-radius: 8px; font-size: 0.85em; }
        .badge.success { background: #dcfce7; }
        .badge.danger { background: #fee2e2; }
        .refresh-indicator { position: fixed; top: 12px; right: 12px; font-size: 0.85em; color: #666; }
    </style>
</head>
<body>
    <div class="refresh-indicator" id="refreshIndicator">
        Auto-refresh: <span id="countdown">2</span>s
    </div>

    <div class="container">
        <div class="header">
            <h1>AuthFence</h1>
            <p>Login, signup and password reset throttling</p>
        </div>

        <div class="stats-grid">
            <div class="stat-card">
                <div class="stat-label">Total Requests</div>
                <div class="stat-value info" id="totalRequests">0</div>
            </div>
            <div class="stat-card">
                <div class="stat-label">Allowed</div>
                <div class="stat-value success" id="allowedRequests">0</div>
                <div class="stat-sublabel" id="successRate">0% success rate</div>
            </div>
            <div class="stat-card">
                <div class="stat-label">Blocked</div>
                <div class="stat-value danger" id="blockedRequests">0</div>
                <div class="stat-sublabel" id="blockRate">0% block rate</div>
            </div>
            <div class="stat-card">
                <div class="stat-label">Uptime</div>
                <div class="stat-value warning" id="uptime">0s</div>
            </div>
        </div>

        <div class="table-card">
            <h2>Purposes</h2>
            <table>
                <thead>
                    <tr>
                        <th>Purpose</th>
                        <th>Total</th>
                        <th>Allowed</th>
                        <th>Blocked</th>
                        <th>Block Rate</th>
                        <th>Last Blocked</th>
                    </tr>
                </thead>
                <tbody id="purposesTable">
                    <tr>
                        <td colspan="6" style="text-align: center; color: #999;">
                            Loading...
                        </td>
                    </tr>
                </tbody>
            </table>
        </div>
    </div>

    <script>
        let countdown = 2;
        let countdownInterval;

        async function fetchMetrics() {
            try {
                const response = await fetch('/metrics');
                const data = await response.json();
                updateDashboard(data);
            } catch (error) {
                console.error('Failed to fetch metrics:', error);
            }
        }

        function updateDashboard(data) {
            // Update stats
            document.getElementById('totalRequests').textContent = 
                data.total_requests.toLocaleString();
            document.getElementById('allowedRequests').textContent = 
                data.allowed_requests.toLocaleString();
            document.getElementById('blockedRequests').textContent = 
                data.blocked_requests.toLocaleString();
            document.getElementById('uptime').textContent =
                formatUptime(data.uptime_seconds);

            // Calculate and display rates
            if (data.total_requests > 0) {
                const successRate = ((data.allowed_requests / data.total_requests) * 100).toFixed(1);
                const blockRate = ((data.blocked_requests / data.total_requests) * 100).toFixed(1);
                document.getElementById('successRate').textContent = successRate + '% success rate';
                document.getElementById('blockRate').textContent = blockRate + '% block rate';
            } else {
                document.getElementById('successRate').textContent = '0% success rate';
                document.getElementById('blockRate').textContent = '0% block rate';
            }

            const tbody = document.getElementById('purposesTable');
            if (data.purposes && data.purposes.length > 0) {
                tbody.innerHTML = data.purposes.map(p => {
                    const blockRate = ((p.blocked_requests / p.total_requests) * 100).toFixed(1);
                    const lastBlocked = p.blocked_requests > 0
                        ? new Date(p.last_blocked_at).toLocaleTimeString()
                        : '-';

                    return ` + "`" + `
                        <tr>
                            <td><strong>${p.purpose}</strong></td>
                            <td>${p.total_requests.toLocaleString()}</td>
                            <td><span class="badge success">${p.allowed_requests}</span></td>
                            <td><span class="badge danger">${p.blocked_requests}</span></td>
                            <td>${blockRate}%</td>
                            <td>${lastBlocked}</td>
                        </tr>
                    ` + "`" + `;
                }).join('');
            } else {
                tbody.innerHTML = ` + "`" + `
                    <tr>
                        <td colspan="6" style="text-align: center; color: #999;">
                            No requests yet
                        </td>
                    </tr>
                ` + "`" + `;
            }
        }

        function formatUptime(seconds) {
            if (seconds < 60) return seconds + 's';
            if (seconds < 3600) return Math.floor(seconds / 60) + 'm';
            return Math.floor(seconds / 3600) + 'h ' + Math.floor((seconds % 3600) / 60) + 'm';
        }

        function startCountdown() {
            countdown = 2;
            document.getElementById('countdown').textContent = countdown;
            
            if (countdownInterval) clearInterval(countdownInterval);
            
            countdownInterval = setInterval(() => {
                countdown--;
                document.getElementById('countdown').textContent = countdown;
                
                if (countdown <= 0) {
                    countdown = 2;
                }
            }, 1000);
        }

        fetchMetrics();
        startCountdown();

        setInterval(() => {
            fetchMetrics();
            startCountdown();
        }, 2000);
    </script>
</body>
</html>`
