package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// --- Travelers ---

func (s *SQLiteStore) RegisterTraveler(ctx context.Context, name string) (string, string, error) {
	var id, token string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO travelers (id, name, session_token)
		VALUES (?, ?, lower(hex(randomblob(16))))
		RETURNING id, session_token
	`, uuid.NewString(), name).Scan(&id, &token)
	if err != nil {
		return "", "", fmt.Errorf("registering traveler: %w", err)
	}
	return id, token, nil
}

func (s *SQLiteStore) TravelerFromToken(ctx context.Context, token string) (travelerSession, error) {
	var sess travelerSession
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name FROM travelers WHERE session_token = ?
	`, token).Scan(&sess.UserID, &sess.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return sess, errNoSession
	}
	return sess, err
}

func (s *SQLiteStore) TravelerProfile(ctx context.Context, id string) (TravelerProfile, error) {
	var p TravelerProfile
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, points, completed_quests FROM travelers WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.Points, &p.CompletedQuests)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}

func (s *SQLiteStore) TopTravelers(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, points, completed_quests
		FROM travelers
		WHERE points > 0
		ORDER BY points DESC, completed_quests DESC, name ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Name, &e.Points, &e.CompletedQuests); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// --- Guides ---

func (s *SQLiteStore) GuideByEmail(ctx context.Context, email string) (string, string, error) {
	var id, hash string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, password_hash FROM guides WHERE email = ?
	`, email).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrNotFound
	}
	return id, hash, err
}

// CreateGuide is not part of Store; guides are provisioned by seeding
// or ops tooling, not through the API.
func (s *SQLiteStore) CreateGuide(ctx context.Context, name, email, passwordHash string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guides (id, name, email, password_hash)
		VALUES (?, ?, ?, ?)
	`, id, name, email, passwordHash)
	if err != nil {
		return "", fmt.Errorf("creating guide: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) CountGuides(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM guides`).Scan(&n)
	return n, err
}

func (s *SQLiteStore) CreateGuideSession(ctx context.Context, guideID string) (string, error) {
	var sessionID string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO guide_sessions (guide_id)
		VALUES (?)
		RETURNING id
	`, guideID).Scan(&sessionID)
	return sessionID, err
}

func (s *SQLiteStore) DeleteGuideSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM guide_sessions WHERE id = ?`, sessionID)
	return err
}

func (s *SQLiteStore) GuideFromSession(ctx context.Context, sessionID string) (guideSession, error) {
	var sess guideSession
	err := s.db.QueryRowContext(ctx, `
		SELECT g.id, g.email, g.name
		FROM guide_sessions s
		JOIN guides g ON g.id = s.guide_id
		WHERE s.id = ?
	`, sessionID).Scan(&sess.GuideID, &sess.Email, &sess.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return guideSession{}, errNoGuideSession
	}
	return sess, err
}

// --- Quests ---

const questColumns = `id, guide_id, title, description, latitude, longitude,
	radius_m, reward, category, difficulty, active, completions, created_at`

func scanQuest(row interface{ Scan(...any) error }) (Quest, error) {
	var q Quest
	err := row.Scan(&q.ID, &q.GuideID, &q.Title, &q.Description, &q.Latitude,
		&q.Longitude, &q.RadiusM, &q.Reward, &q.Category, &q.Difficulty,
		&q.Active, &q.Completions, &q.CreatedAt)
	return q, err
}

func (s *SQLiteStore) CreateQuest(ctx context.Context, q Quest) (Quest, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO quests (id, guide_id, title, description, latitude, longitude,
			radius_m, reward, category, difficulty, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+questColumns,
		uuid.NewString(), q.GuideID, q.Title, q.Description, q.Latitude,
		q.Longitude, q.RadiusM, q.Reward, q.Category, q.Difficulty, q.Active)
	created, err := scanQuest(row)
	if err != nil {
		return Quest{}, fmt.Errorf("creating quest: %w", err)
	}
	return created, nil
}

func (s *SQLiteStore) GetQuest(ctx context.Context, id string) (Quest, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+questColumns+` FROM quests WHERE id = ?`, id)
	q, err := scanQuest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Quest{}, ErrNotFound
	}
	return q, err
}

func (s *SQLiteStore) UpdateQuest(ctx context.Context, id, guideID string, upd QuestUpdate) (Quest, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE quests
		SET title = ?, description = ?, latitude = ?, longitude = ?,
			radius_m = ?, reward = ?, category = ?, difficulty = ?
		WHERE id = ? AND guide_id = ?
		RETURNING `+questColumns,
		upd.Title, upd.Description, upd.Latitude, upd.Longitude,
		upd.RadiusM, upd.Reward, upd.Category, upd.Difficulty, id, guideID)
	q, err := scanQuest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Quest{}, ErrNotFound
	}
	return q, err
}

func (s *SQLiteStore) SetQuestActive(ctx context.Context, id, guideID string, active bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE quests SET active = ? WHERE id = ? AND guide_id = ?
	`, active, id, guideID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteQuest(ctx context.Context, id, guideID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM quests WHERE id = ? AND guide_id = ?
	`, id, guideID)
	if isForeignKeyViolation(err) {
		// Submissions reference this quest; it can only be deactivated.
		return ErrQuestReferenced
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) ListActiveQuests(ctx context.Context) ([]Quest, error) {
	return s.listQuests(ctx, `SELECT `+questColumns+` FROM quests WHERE active = 1 ORDER BY created_at DESC`)
}

func (s *SQLiteStore) ListQuestsByGuide(ctx context.Context, guideID string) ([]Quest, error) {
	return s.listQuests(ctx, `SELECT `+questColumns+` FROM quests WHERE guide_id = ? ORDER BY created_at DESC`, guideID)
}

func (s *SQLiteStore) listQuests(ctx context.Context, query string, args ...any) ([]Quest, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quests []Quest
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, err
		}
		quests = append(quests, q)
	}
	return quests, rows.Err()
}

// --- Submissions ---

const submissionColumns = `id, quest_id, user_id, state, before_image_ref,
	after_image_ref, start_lat, start_lon, complete_lat, complete_lon,
	confidence, reason, started_at, completed_at`

func scanSubmission(row interface{ Scan(...any) error }) (Submission, error) {
	var sub Submission
	var afterRef, completedAt sql.NullString
	var cLat, cLon, conf sql.NullFloat64
	err := row.Scan(&sub.ID, &sub.QuestID, &sub.UserID, &sub.State,
		&sub.BeforeImageRef, &afterRef, &sub.StartLat, &sub.StartLon,
		&cLat, &cLon, &conf, &sub.Reason, &sub.StartedAt, &completedAt)
	if err != nil {
		return Submission{}, err
	}
	sub.AfterImageRef = afterRef.String
	sub.CompletedAt = completedAt.String
	if cLat.Valid {
		sub.CompleteLat = &cLat.Float64
	}
	if cLon.Valid {
		sub.CompleteLon = &cLon.Float64
	}
	if conf.Valid {
		sub.Confidence = &conf.Float64
	}
	return sub, nil
}

// StartSubmission inserts a new in_progress submission. The partial
// unique index on (quest_id, user_id) WHERE state='in_progress' makes
// this the single atomic insert-or-reject point: a second concurrent
// start for the same pair fails the insert, never a check-then-insert
// race.
func (s *SQLiteStore) StartSubmission(ctx context.Context, sub Submission) (Submission, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO submissions (id, quest_id, user_id, before_image_ref, start_lat, start_lon)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING `+submissionColumns,
		uuid.NewString(), sub.QuestID, sub.UserID, sub.BeforeImageRef,
		sub.StartLat, sub.StartLon)
	created, err := scanSubmission(row)
	if isUniqueViolation(err) {
		return Submission{}, ErrDuplicateSubmission
	}
	if err != nil {
		return Submission{}, fmt.Errorf("starting submission: %w", err)
	}
	return created, nil
}

// LatestSubmission returns the most recently started submission for the
// pair, whatever its state. Callers distinguish "never started" from
// "already finished".
func (s *SQLiteStore) LatestSubmission(ctx context.Context, questID, userID string) (Submission, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+submissionColumns+`
		FROM submissions
		WHERE quest_id = ? AND user_id = ?
		ORDER BY started_at DESC, id DESC
		LIMIT 1
	`, questID, userID)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Submission{}, ErrNotFound
	}
	return sub, err
}

// FinishSubmission moves a submission out of in_progress exactly once.
// The UPDATE is a compare-and-set guarded by state='in_progress'; when
// two completions race, the loser sees zero affected rows and gets
// ErrAlreadyFinished without any side effects. The reward credit, the
// completed-quest counter, the quest completions counter, and the ledger
// row all commit in the same transaction as the state transition, so the
// credit happens at most once per submission.
func (s *SQLiteStore) FinishSubmission(ctx context.Context, submissionID string, out SubmissionOutcome) error {
	if out.State != StateVerified && out.State != StateFailed {
		return fmt.Errorf("invalid terminal state %q", out.State)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning finish tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE submissions
		SET state = ?, confidence = ?, reason = ?, after_image_ref = ?,
			complete_lat = ?, complete_lon = ?,
			completed_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		WHERE id = ? AND state = 'in_progress'
	`, out.State, out.Confidence, out.Reason, out.AfterImageRef,
		out.CompleteLat, out.CompleteLon, submissionID)
	if err != nil {
		return fmt.Errorf("finishing submission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var state string
		err := tx.QueryRowContext(ctx,
			`SELECT state FROM submissions WHERE id = ?`, submissionID).Scan(&state)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return ErrAlreadyFinished
	}

	if out.State == StateVerified {
		var questID, userID string
		err := tx.QueryRowContext(ctx,
			`SELECT quest_id, user_id FROM submissions WHERE id = ?`, submissionID).
			Scan(&questID, &userID)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE travelers
			SET points = points + ?, completed_quests = completed_quests + 1
			WHERE id = ?
		`, out.Reward, userID); err != nil {
			return fmt.Errorf("crediting reward: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE quests SET completions = completions + 1 WHERE id = ?
		`, questID); err != nil {
			return fmt.Errorf("counting completion: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO reward_ledger (id, user_id, submission_id, points)
			VALUES (?, ?, ?, ?)
		`, uuid.NewString(), userID, submissionID, out.Reward); err != nil {
			return fmt.Errorf("recording ledger entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing finish tx: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetSubmission(ctx context.Context, id string) (Submission, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = ?`, id)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Submission{}, ErrNotFound
	}
	return sub, err
}

func (s *SQLiteStore) ListSubmissionsByUser(ctx context.Context, userID string) ([]Submission, error) {
	return s.listSubmissions(ctx, `
		SELECT `+submissionColumns+`
		FROM submissions
		WHERE user_id = ?
		ORDER BY started_at DESC
	`, userID)
}

func (s *SQLiteStore) ListSubmissionsByGuide(ctx context.Context, guideID, state string) ([]Submission, error) {
	query := `
		SELECT s.id, s.quest_id, s.user_id, s.state, s.before_image_ref,
			s.after_image_ref, s.start_lat, s.start_lon, s.complete_lat,
			s.complete_lon, s.confidence, s.reason, s.started_at, s.completed_at
		FROM submissions s
		JOIN quests q ON q.id = s.quest_id
		WHERE q.guide_id = ?`
	args := []any{guideID}
	if state != "" {
		query += ` AND s.state = ?`
		args = append(args, state)
	}
	query += ` ORDER BY s.started_at DESC`
	return s.listSubmissions(ctx, query, args...)
}

func (s *SQLiteStore) listSubmissions(ctx context.Context, query string, args ...any) ([]Submission, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
