// ABOUTME: Request log storage operations.
// ABOUTME: Inserts HTTP request logs and answers the filtered and aggregate queries behind `dic logs`.

package store

import "time"

// RequestLog represents an HTTP request log entry
type RequestLog struct {
	ID           int64
	Timestamp    time.Time
	Area         string
	Method       string
	Path         string
	StatusCode   int
	DurationMs   int
	SessionID    string
	IPAddress    string
	UserAgent    string
	Error        string
	RequestBody  string
	ResponseBody string
}

// LogRequest inserts a request log entry. A zero Timestamp means now.
func (s *Store) LogRequest(log *RequestLog) error {
	ts := log.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO request_logs (timestamp, area, method, path, status_code, duration_ms, session_id, ip_address, user_agent, error, request_body, response_body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ts.UTC(), log.Area, log.Method, log.Path, log.StatusCode, log.DurationMs, log.SessionID, log.IPAddress, log.UserAgent, log.Error, log.RequestBody, log.ResponseBody)
	return err
}

// RequestLogQuery represents filters for request logs
type RequestLogQuery struct {
	Limit      int
	Offset     int
	Area       string
	Method     string
	PathPrefix string
	StatusCode int
	SessionID  string
}

// RequestLogStats represents aggregate statistics
type RequestLogStats struct {
	TotalRequests   int
	ErrorRequests   int
	AvgDurationMs   int
	UniqueEndpoints int
	UniqueSessions  int
}

// EndpointCount is one row of GetTopEndpoints.
type EndpointCount struct {
	Path  string
	Count int
	AvgMs int
}

const requestLogColumns = `id, timestamp, COALESCE(area, ''), method, path, COALESCE(status_code, 0), COALESCE(duration_ms, 0),
	COALESCE(session_id, ''), COALESCE(ip_address, ''), COALESCE(user_agent, ''), COALESCE(error, ''),
	COALESCE(request_body, ''), COALESCE(response_body, '')`

// GetRequestLogs retrieves request logs with filtering, newest first
func (s *Store) GetRequestLogs(q *RequestLogQuery) ([]*RequestLog, error) {
	query := `SELECT ` + requestLogColumns + ` FROM request_logs WHERE 1=1`
	args := []any{}

	if q.Area != "" {
		query += " AND area = ?"
		args = append(args, q.Area)
	}
	if q.Method != "" {
		query += " AND method = ?"
		args = append(args, q.Method)
	}
	if q.PathPrefix != "" {
		query += ` AND path LIKE ? ESCAPE '\'`
		args = append(args, escapeSQLLike(q.PathPrefix)+"%")
	}
	if q.StatusCode > 0 {
		query += " AND status_code = ?"
		args = append(args, q.StatusCode)
	}
	if q.SessionID != "" {
		query += " AND session_id = ?"
		args = append(args, q.SessionID)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, q.Offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*RequestLog
	for rows.Next() {
		log := &RequestLog{}
		if err := rows.Scan(&log.ID, &log.Timestamp, &log.Area, &log.Method, &log.Path, &log.StatusCode,
			&log.DurationMs, &log.SessionID, &log.IPAddress, &log.UserAgent, &log.Error,
			&log.RequestBody, &log.ResponseBody); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// GetRequestLogStats returns aggregate statistics
func (s *Store) GetRequestLogStats() (*RequestLogStats, error) {
	stats := &RequestLogStats{}
	var avg float64
	err := s.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status_code >= 400 THEN 1 ELSE 0 END), 0),
		       COALESCE(AVG(duration_ms), 0),
		       COUNT(DISTINCT path),
		       COUNT(DISTINCT CASE WHEN session_id != '' THEN session_id END)
		FROM request_logs
	`).Scan(&stats.TotalRequests, &stats.ErrorRequests, &avg, &stats.UniqueEndpoints, &stats.UniqueSessions)
	if err != nil {
		return nil, err
	}
	stats.AvgDurationMs = int(avg)
	return stats, nil
}

// GetTopEndpoints returns the most frequently requested endpoints
func (s *Store) GetTopEndpoints(limit int) ([]EndpointCount, error) {
	rows, err := s.db.Query(`
		SELECT path, COUNT(*) as count, AVG(duration_ms) as avg_ms
		FROM request_logs
		GROUP BY path
		ORDER BY count DESC, path
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var endpoints []EndpointCount
	for rows.Next() {
		var e EndpointCount
		var avgMs float64
		if err := rows.Scan(&e.Path, &e.Count, &avgMs); err != nil {
			return nil, err
		}
		e.AvgMs = int(avgMs)
		endpoints = append(endpoints, e)
	}
	return endpoints, rows.Err()
}
