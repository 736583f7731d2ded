// Package storage persists users, boards, columns, tasks and board
// memberships in sqlite. It is the single source of truth; the realtime
// layer only observes mutations committed here.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nkitajim/task-collabo/domain"
)

var (
	// ErrNotFound is returned when an identifier does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail is returned when registering an already known email.
	ErrDuplicateEmail = errors.New("user already exists")
)

// Store provides transactional access to the sqlite database.
type Store struct {
	db *sql.DB
}

func (s *Store) Close() error {
	return s.db.Close()
}

// --- users ---

func (s *Store) CreateUser(ctx context.Context, u domain.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx for create user: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE email = ?`, u.Email).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if exists > 0 {
		return ErrDuplicateEmail
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, email, name, hashed_password) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.HashedPassword)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return tx.Commit()
}

func (s *Store) UserByEmail(ctx context.Context, email string) (domain.User, error) {
	var u domain.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, hashed_password FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &u.Name, &u.HashedPassword)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("user by email: %w", err)
	}
	return u, nil
}

func (s *Store) UserByID(ctx context.Context, id string) (domain.User, error) {
	var u domain.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, hashed_password FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.HashedPassword)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("user by id: %w", err)
	}
	return u, nil
}

// --- boards & membership ---

// CreateBoard inserts the board and its owner membership in one transaction.
func (s *Store) CreateBoard(ctx context.Context, b domain.Board, ownerID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx for create board: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO boards (id, title) VALUES (?, ?)`, b.ID, b.Title); err != nil {
		return fmt.Errorf("create board: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO board_members (board_id, user_id, role) VALUES (?, ?, ?)`,
		b.ID, ownerID, domain.RoleOwner); err != nil {
		return fmt.Errorf("create owner membership: %w", err)
	}
	return tx.Commit()
}

func (s *Store) BoardsForUser(ctx context.Context, userID string) ([]domain.Board, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT b.id, b.title FROM boards b
		 JOIN board_members m ON m.board_id = b.id
		 WHERE m.user_id = ?
		 ORDER BY b.title`, userID)
	if err != nil {
		return nil, fmt.Errorf("boards for user: %w", err)
	}
	defer rows.Close()

	boards := []domain.Board{}
	for rows.Next() {
		var b domain.Board
		if err := rows.Scan(&b.ID, &b.Title); err != nil {
			return nil, err
		}
		boards = append(boards, b)
	}
	return boards, rows.Err()
}

func (s *Store) AddMember(ctx context.Context, m domain.Membership) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO board_members (board_id, user_id, role) VALUES (?, ?, ?)`,
		m.BoardID, m.UserID, m.Role)
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

// IsMember answers the admission question "may user U touch board B".
func (s *Store) IsMember(ctx context.Context, boardID, userID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM board_members WHERE board_id = ? AND user_id = ?`,
		boardID, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("membership lookup: %w", err)
	}
	return n > 0, nil
}

// BoardFull returns the board with columns and tasks in position order.
func (s *Store) BoardFull(ctx context.Context, boardID string) (domain.BoardFull, error) {
	var full domain.BoardFull
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title FROM boards WHERE id = ?`, boardID).
		Scan(&full.ID, &full.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.BoardFull{}, ErrNotFound
	}
	if err != nil {
		return domain.BoardFull{}, fmt.Errorf("board: %w", err)
	}

	cols, err := s.ColumnsForBoard(ctx, boardID)
	if err != nil {
		return domain.BoardFull{}, err
	}
	full.Columns = make([]domain.ColumnFull, 0, len(cols))
	for _, col := range cols {
		tasks, err := s.tasksForColumn(ctx, col.ID)
		if err != nil {
			return domain.BoardFull{}, err
		}
		full.Columns = append(full.Columns, domain.ColumnFull{
			ID:       col.ID,
			Title:    col.Title,
			Position: col.Position,
			Tasks:    tasks,
		})
	}
	return full, nil
}

// --- columns ---

func (s *Store) CreateColumn(ctx context.Context, col domain.Column) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO columns (id, board_id, title, position) VALUES (?, ?, ?, ?)`,
		col.ID, col.BoardID, col.Title, col.Position)
	if err != nil {
		return fmt.Errorf("create column: %w", err)
	}
	return nil
}

// DeleteColumn removes the column and, via cascade, its tasks.
func (s *Store) DeleteColumn(ctx context.Context, boardID, columnID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM columns WHERE id = ? AND board_id = ?`, columnID, boardID)
	if err != nil {
		return fmt.Errorf("delete column: %w", err)
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

func (s *Store) ColumnsForBoard(ctx context.Context, boardID string) ([]domain.Column, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, board_id, title, position FROM columns
		 WHERE board_id = ? ORDER BY position, id`, boardID)
	if err != nil {
		return nil, fmt.Errorf("columns for board: %w", err)
	}
	defer rows.Close()

	cols := []domain.Column{}
	for rows.Next() {
		var c domain.Column
		if err := rows.Scan(&c.ID, &c.BoardID, &c.Title, &c.Position); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// BoardIDForColumn resolves a column's owning board.
func (s *Store) BoardIDForColumn(ctx context.Context, columnID string) (string, error) {
	var boardID string
	err := s.db.QueryRowContext(ctx,
		`SELECT board_id FROM columns WHERE id = ?`, columnID).Scan(&boardID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("board for column: %w", err)
	}
	return boardID, nil
}

// --- tasks ---

const taskColumns = `id, column_id, title, summary, description, start_date, end_date, owner, assignee_id, reward, position`

func (s *Store) CreateTask(ctx context.Context, t domain.Task) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ColumnID, t.Title, t.Summary, t.Description,
		t.StartDate.UTC().Format(time.RFC3339), formatNullableTime(t.EndDate),
		t.Owner, t.AssigneeID, t.Reward, t.Position)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (s *Store) TaskByID(ctx context.Context, id string) (domain.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	return scanTask(row)
}

// UpdateTask applies the non-nil fields of patch and returns the updated task.
func (s *Store) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, fmt.Errorf("begin tx for update task: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	t, err := scanTask(tx.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if err != nil {
		return domain.Task{}, err
	}

	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Summary != nil {
		t.Summary = *patch.Summary
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.StartDate != nil {
		t.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		t.EndDate = patch.EndDate
	}
	if patch.Owner != nil {
		t.Owner = *patch.Owner
	}
	if patch.AssigneeID != nil {
		t.AssigneeID = *patch.AssigneeID
	}
	if patch.Reward != nil {
		t.Reward = *patch.Reward
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE tasks SET title = ?, summary = ?, description = ?, start_date = ?,
		 end_date = ?, owner = ?, assignee_id = ?, reward = ? WHERE id = ?`,
		t.Title, t.Summary, t.Description, t.StartDate.UTC().Format(time.RFC3339),
		formatNullableTime(t.EndDate), t.Owner, t.AssigneeID, t.Reward, t.ID)
	if err != nil {
		return domain.Task{}, fmt.Errorf("update task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// DeleteTask removes the task and returns its last known state so the
// caller can route and describe the deletion event.
func (s *Store) DeleteTask(ctx context.Context, id string) (domain.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, fmt.Errorf("begin tx for delete task: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	t, err := scanTask(tx.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if err != nil {
		return domain.Task{}, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return domain.Task{}, fmt.Errorf("delete task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// AssignTask sets the assignee and returns the updated task.
func (s *Store) AssignTask(ctx context.Context, id, assigneeID string) (domain.Task, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET assignee_id = ? WHERE id = ?`, assigneeID, id)
	if err != nil {
		return domain.Task{}, fmt.Errorf("assign task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Task{}, err
	}
	if n == 0 {
		return domain.Task{}, ErrNotFound
	}
	return s.TaskByID(ctx, id)
}

// BoardIDForTask resolves a task's owning board through its column.
func (s *Store) BoardIDForTask(ctx context.Context, taskID string) (string, error) {
	var boardID string
	err := s.db.QueryRowContext(ctx,
		`SELECT c.board_id FROM tasks t JOIN columns c ON c.id = t.column_id
		 WHERE t.id = ?`, taskID).Scan(&boardID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("board for task: %w", err)
	}
	return boardID, nil
}

// ReorderTasks applies the submitted arrangement in one transaction: every
// listed task is moved to its column at its list index. Task ids that no
// longer resolve are skipped without failing the batch; no partial state is
// visible to concurrent readers before commit.
func (s *Store) ReorderTasks(ctx context.Context, req domain.ReorderRequest) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx for reorder: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, col := range req.Columns {
		for idx, taskID := range col.TaskIDs {
			// zero rows affected means the id no longer resolves; skip it
			if _, err := tx.ExecContext(ctx,
				`UPDATE tasks SET column_id = ?, position = ? WHERE id = ?`,
				col.ID, idx, taskID); err != nil {
				return fmt.Errorf("reorder task %s: %w", taskID, err)
			}
		}
	}
	return tx.Commit()
}

// --- helpers ---

func (s *Store) tasksForColumn(ctx context.Context, columnID string) ([]domain.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE column_id = ? ORDER BY position, id`, columnID)
	if err != nil {
		return nil, fmt.Errorf("tasks for column: %w", err)
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		t, err := scanTaskRow(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row *sql.Row) (domain.Task, error) {
	t, err := scanTaskRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, ErrNotFound
	}
	return t, err
}

func scanTaskRow(row rowScanner) (domain.Task, error) {
	var t domain.Task
	var start string
	var end sql.NullString
	err := row.Scan(&t.ID, &t.ColumnID, &t.Title, &t.Summary, &t.Description,
		&start, &end, &t.Owner, &t.AssigneeID, &t.Reward, &t.Position)
	if err != nil {
		return domain.Task{}, err
	}
	if t.StartDate, err = time.Parse(time.RFC3339, start); err != nil {
		return domain.Task{}, fmt.Errorf("parse start date: %w", err)
	}
	if end.Valid {
		parsed, err := time.Parse(time.RFC3339, end.String)
		if err != nil {
			return domain.Task{}, fmt.Errorf("parse end date: %w", err)
		}
		t.EndDate = &parsed
	}
	return t, nil
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
