// Package results persists quizzes, graded results and the class/homework
// relations that link them. All quiz and result payloads are stored as JSON
// blobs; relational columns exist only for lookup and ownership.
package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned for lookups of rows that do not exist.
var ErrNotFound = errors.New("not found")

// SelfStudyTeacher marks quizzes a student generated for themselves rather
// than received from a teacher.
const SelfStudyTeacher = "0"

// Quiz is one stored quiz row. Definition holds the normalized SurveyJS
// document verbatim.
type Quiz struct {
	ID            int64           `json:"id"`
	Sno           string          `json:"sno,omitempty"`
	Tno           string          `json:"tno,omitempty"`
	Title         string          `json:"title"`
	FileName      string          `json:"file_name,omitempty"`
	Definition    json.RawMessage `json:"definition,omitempty"`
	QuestionCount int             `json:"question_count"`
	Difficulty    string          `json:"difficulty,omitempty"`
	CreatedAt     int64           `json:"created_at"`
}

// Analysis is one stored grading result. Subject is the student or teacher
// number that submitted the answers.
type Analysis struct {
	ID        int64           `json:"id"`
	QuizID    int64           `json:"quiz_id"`
	Subject   string          `json:"subject"`
	QuizTitle string          `json:"quiz_title,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	CreatedAt int64           `json:"created_at"`
}

// Class is one teaching class owned by a teacher.
type Class struct {
	Cno   int64  `json:"cno"`
	Cname string `json:"cname"`
	Tno   string `json:"tno"`
}

type SQLStore struct {
	db *sql.DB
}

// NewSQLStore works over either supported driver: the queries stick to $N
// placeholders and RETURNING, which sqlite and postgres both accept.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

/* ---------------------------------- quizzes ---------------------------------- */

func (s *SQLStore) SaveQuiz(ctx context.Context, q Quiz) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO quizzes (sno,tno,title,file_name,quiz_json,question_count,difficulty,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		q.Sno, q.Tno, q.Title, q.FileName, string(q.Definition), q.QuestionCount, q.Difficulty, time.Now().Unix(),
	).Scan(&id)
	return id, err
}

func (s *SQLStore) GetQuiz(ctx context.Context, id int64) (Quiz, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,sno,tno,title,file_name,quiz_json,question_count,difficulty,created_at
		 FROM quizzes WHERE id=$1`, id)
	var q Quiz
	var qjson string
	if err := row.Scan(&q.ID, &q.Sno, &q.Tno, &q.Title, &q.FileName, &qjson, &q.QuestionCount, &q.Difficulty, &q.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quiz{}, ErrNotFound
		}
		return Quiz{}, err
	}
	q.Definition = json.RawMessage(qjson)
	return q, nil
}

// ListQuizzesForStudent returns the quizzes a student generated for
// themselves. Teacher homework is listed through ListHomework.
func (s *SQLStore) ListQuizzesForStudent(ctx context.Context, sno string) ([]Quiz, error) {
	return s.listQuizzes(ctx,
		`SELECT id,sno,tno,title,file_name,question_count,difficulty,created_at
		 FROM quizzes WHERE sno=$1 AND tno=$2 ORDER BY created_at DESC`, sno, SelfStudyTeacher)
}

func (s *SQLStore) ListQuizzesForTeacher(ctx context.Context, tno string) ([]Quiz, error) {
	return s.listQuizzes(ctx,
		`SELECT id,sno,tno,title,file_name,question_count,difficulty,created_at
		 FROM quizzes WHERE tno=$1 ORDER BY created_at DESC`, tno)
}

func (s *SQLStore) listQuizzes(ctx context.Context, query string, args ...any) ([]Quiz, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Quiz{}
	for rows.Next() {
		var q Quiz
		if err := rows.Scan(&q.ID, &q.Sno, &q.Tno, &q.Title, &q.FileName, &q.QuestionCount, &q.Difficulty, &q.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

/* ---------------------------------- results ---------------------------------- */

func (s *SQLStore) SaveAnalysis(ctx context.Context, quizID int64, sno string, result json.RawMessage) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO analysis_results (quiz_id,sno,result_json,created_at)
		 VALUES ($1,$2,$3,$4) RETURNING id`,
		quizID, sno, string(result), time.Now().Unix(),
	).Scan(&id)
	return id, err
}

func (s *SQLStore) SaveTeacherAnalysis(ctx context.Context, quizID int64, tno string, result json.RawMessage) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO teacher_analysis_results (quiz_id,tno,result_json,created_at)
		 VALUES ($1,$2,$3,$4) RETURNING id`,
		quizID, tno, string(result), time.Now().Unix(),
	).Scan(&id)
	return id, err
}

func (s *SQLStore) GetAnalysis(ctx context.Context, id int64, sno string) (Analysis, error) {
	return s.getAnalysis(ctx,
		`SELECT r.id,r.quiz_id,r.sno,q.title,r.result_json,r.created_at
		 FROM analysis_results r JOIN quizzes q ON q.id=r.quiz_id
		 WHERE r.id=$1 AND r.sno=$2`, id, sno)
}

func (s *SQLStore) GetTeacherAnalysis(ctx context.Context, id int64, tno string) (Analysis, error) {
	return s.getAnalysis(ctx,
		`SELECT r.id,r.quiz_id,r.tno,q.title,r.result_json,r.created_at
		 FROM teacher_analysis_results r JOIN quizzes q ON q.id=r.quiz_id
		 WHERE r.id=$1 AND r.tno=$2`, id, tno)
}

func (s *SQLStore) getAnalysis(ctx context.Context, query string, args ...any) (Analysis, error) {
	var a Analysis
	var rjson string
	err := s.db.QueryRowContext(ctx, query, args...).
		Scan(&a.ID, &a.QuizID, &a.Subject, &a.QuizTitle, &rjson, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Analysis{}, ErrNotFound
		}
		return Analysis{}, err
	}
	a.Result = json.RawMessage(rjson)
	return a, nil
}

// ListAnalyses returns result summaries for one student, newest first. The
// result payload is omitted; fetch it with GetAnalysis.
func (s *SQLStore) ListAnalyses(ctx context.Context, sno string) ([]Analysis, error) {
	return s.listAnalyses(ctx,
		`SELECT r.id,r.quiz_id,r.sno,q.title,r.created_at
		 FROM analysis_results r JOIN quizzes q ON q.id=r.quiz_id
		 WHERE r.sno=$1 ORDER BY r.created_at DESC`, sno)
}

func (s *SQLStore) ListTeacherAnalyses(ctx context.Context, tno string) ([]Analysis, error) {
	return s.listAnalyses(ctx,
		`SELECT r.id,r.quiz_id,r.tno,q.title,r.created_at
		 FROM teacher_analysis_results r JOIN quizzes q ON q.id=r.quiz_id
		 WHERE r.tno=$1 ORDER BY r.created_at DESC`, tno)
}

func (s *SQLStore) listAnalyses(ctx context.Context, query string, args ...any) ([]Analysis, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Analysis{}
	for rows.Next() {
		var a Analysis
		if err := rows.Scan(&a.ID, &a.QuizID, &a.Subject, &a.QuizTitle, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AnalysisBlobsForQuiz feeds the aggregators: every stored student result
// payload for one quiz, in insertion order.
func (s *SQLStore) AnalysisBlobsForQuiz(ctx context.Context, quizID int64) ([][]byte, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT result_json FROM analysis_results WHERE quiz_id=$1 ORDER BY id`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var rjson string
		if err := rows.Scan(&rjson); err != nil {
			return nil, err
		}
		out = append(out, []byte(rjson))
	}
	return out, rows.Err()
}

/* ------------------------------ classes, homework ----------------------------- */

func (s *SQLStore) CreateClass(ctx context.Context, cname, tno string) (int64, error) {
	var cno int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO classes (cname,tno) VALUES ($1,$2) RETURNING cno`, cname, tno,
	).Scan(&cno)
	return cno, err
}

func (s *SQLStore) ListClasses(ctx context.Context, tno string) ([]Class, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cno,cname,tno FROM classes WHERE tno=$1 ORDER BY cno`, tno)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Class{}
	for rows.Next() {
		var c Class
		if err := rows.Scan(&c.Cno, &c.Cname, &c.Tno); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// PublishHomework links a quiz to a class. Publishing twice is a no-op.
func (s *SQLStore) PublishHomework(ctx context.Context, cno, quizID int64) error {
	if _, err := s.GetQuiz(ctx, quizID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO homework (cno,quiz_id,assigned_at) VALUES ($1,$2,$3)
		 ON CONFLICT (cno,quiz_id) DO NOTHING`,
		cno, quizID, time.Now().Unix())
	return err
}

// ListHomework returns the quizzes assigned to one class, newest first.
func (s *SQLStore) ListHomework(ctx context.Context, cno int64) ([]Quiz, error) {
	return s.listQuizzes(ctx,
		`SELECT q.id,q.sno,q.tno,q.title,q.file_name,q.question_count,q.difficulty,q.created_at
		 FROM homework h JOIN quizzes q ON q.id=h.quiz_id
		 WHERE h.cno=$1 ORDER BY h.assigned_at DESC`, cno)
}

// QuizIDsForCourse lists the quiz ids assigned to one class for the
// course-wide aggregators.
func (s *SQLStore) QuizIDsForCourse(ctx context.Context, cno int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT quiz_id FROM homework WHERE cno=$1 ORDER BY assigned_at DESC`, cno)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
