package repos

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/blake2b"

	"libdesk/internal/domain"
)

// ErrNoSession is returned when the sid is unknown or expired.
var ErrNoSession = errors.New("no session")

type sessionRow struct {
	LibrarianID string `db:"librarian_id"`
	Username    string `db:"username"`
	DisplayName string `db:"display_name"`
	Admin       bool   `db:"admin"`
	CreatedAt   int64  `db:"created_at"`
}

// SessionRepo stores sessions keyed by a digest of the cookie value, so a
// copy of the database cannot be replayed as cookies.
type SessionRepo struct {
	DB  *sqlx.DB
	TTL time.Duration // 0 keeps sessions until logout
	now func() time.Time
}

func NewSessionRepo(db *sqlx.DB, ttl time.Duration) *SessionRepo {
	return &SessionRepo{DB: db, TTL: ttl, now: time.Now}
}

func digest(sid string) string {
	sum := blake2b.Sum256([]byte(sid))
	return hex.EncodeToString(sum[:])
}

func (r *SessionRepo) Bind(sid string, s domain.Session) error {
	now := r.now().Unix()
	_, err := r.DB.Exec(`INSERT INTO sessions(id_hash,librarian_id,username,display_name,admin,created_at,last_seen)
                          VALUES(?,?,?,?,?,?,?)
                          ON CONFLICT(id_hash) DO UPDATE SET librarian_id=excluded.librarian_id,username=excluded.username,
                            display_name=excluded.display_name,admin=excluded.admin,created_at=excluded.created_at,last_seen=excluded.last_seen`,
		digest(sid), s.LibrarianID, s.Username, s.DisplayName, s.Admin, now, now)
	return err
}

func (r *SessionRepo) Get(sid string) (*domain.Session, error) {
	var row sessionRow
	err := r.DB.Get(&row, `SELECT librarian_id,username,display_name,admin,created_at FROM sessions WHERE id_hash=?`, digest(sid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	created := time.Unix(row.CreatedAt, 0)
	if r.TTL > 0 && r.now().Sub(created) > r.TTL {
		_ = r.Unbind(sid)
		return nil, ErrNoSession
	}
	_, _ = r.DB.Exec(`UPDATE sessions SET last_seen=? WHERE id_hash=?`, r.now().Unix(), digest(sid))
	return &domain.Session{
		LibrarianID:   row.LibrarianID,
		Username:      row.Username,
		DisplayName:   row.DisplayName,
		Authenticated: true,
		Admin:         row.Admin,
		CreatedAt:     created,
	}, nil
}

func (r *SessionRepo) Unbind(sid string) error {
	_, err := r.DB.Exec(`DELETE FROM sessions WHERE id_hash=?`, digest(sid))
	return err
}

// Purge drops sessions older than the TTL and reports how many went.
func (r *SessionRepo) Purge() (int64, error) {
	if r.TTL <= 0 {
		return 0, nil
	}
	res, err := r.DB.Exec(`DELETE FROM sessions WHERE created_at < ?`, r.now().Add(-r.TTL).Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
