package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lox/ploroom/internal/stats"
)

// SQLiteStore implements Store on a local sqlite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and migrates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS bankrolls (
			user_id TEXT PRIMARY KEY,
			balance INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			type TEXT NOT NULL,
			amount INTEGER NOT NULL,
			table_id TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS hand_histories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			table_id TEXT NOT NULL,
			hand_number INTEGER NOT NULL,
			blinds TEXT NOT NULL,
			community TEXT NOT NULL,
			pot INTEGER NOT NULL,
			rake INTEGER NOT NULL,
			dealer_pos INTEGER NOT NULL,
			winners TEXT NOT NULL,
			actions TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS hand_history_players (
			hand_id INTEGER NOT NULL,
			user_id TEXT,
			seat_pos INTEGER NOT NULL,
			hole_cards TEXT NOT NULL,
			final_hand TEXT,
			profit INTEGER NOT NULL,
			all_in_ev_profit INTEGER,
			FOREIGN KEY (hand_id) REFERENCES hand_histories(id)
		)`,
		`CREATE TABLE IF NOT EXISTS player_stats_cache (
			user_id TEXT PRIMARY KEY,
			hands INTEGER NOT NULL DEFAULT 0,
			vpip INTEGER NOT NULL DEFAULT 0,
			pfr INTEGER NOT NULL DEFAULT 0,
			three_bet INTEGER NOT NULL DEFAULT 0,
			four_bet INTEGER NOT NULL DEFAULT 0,
			c_bet INTEGER NOT NULL DEFAULT 0,
			c_bet_faced INTEGER NOT NULL DEFAULT 0,
			fold_to_c_bet INTEGER NOT NULL DEFAULT 0,
			saw_flop INTEGER NOT NULL DEFAULT 0,
			wtsd INTEGER NOT NULL DEFAULT 0,
			won_at_showdown INTEGER NOT NULL DEFAULT 0,
			agg_actions INTEGER NOT NULL DEFAULT 0,
			passive_actions INTEGER NOT NULL DEFAULT 0,
			profit INTEGER NOT NULL DEFAULT 0,
			all_in_ev_profit INTEGER NOT NULL DEFAULT 0,
			went_all_in INTEGER NOT NULL DEFAULT 0
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) EnsureUser(ctx context.Context, userID, name string, startingBalance int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (id, name) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		userID, name); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO bankrolls (user_id, balance) VALUES (?, ?) ON CONFLICT(user_id) DO NOTHING`,
		userID, startingBalance); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) DeductBuyIn(ctx context.Context, userID string, amount int, tableID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var balance int
	err = tx.QueryRowContext(ctx, `SELECT balance FROM bankrolls WHERE user_id = ?`, userID).Scan(&balance)
	if err == sql.ErrNoRows {
		return ErrUnknownUser
	}
	if err != nil {
		return err
	}
	if balance < amount {
		return ErrInsufficientBalance
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE bankrolls SET balance = balance - ? WHERE user_id = ?`, amount, userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (user_id, type, amount, table_id) VALUES (?, 'buy_in', ?, ?)`,
		userID, -amount, tableID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) CashOut(ctx context.Context, userID string, amount int, tableID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE bankrolls SET balance = balance + ? WHERE user_id = ?`, amount, userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (user_id, type, amount, table_id) VALUES (?, 'cash_out', ?, ?)`,
		userID, amount, tableID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Balance(ctx context.Context, userID string) (int, error) {
	var balance int
	err := s.db.QueryRowContext(ctx, `SELECT balance FROM bankrolls WHERE user_id = ?`, userID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, ErrUnknownUser
	}
	return balance, err
}

func (s *SQLiteStore) RecordHand(ctx context.Context, rec HandRecord) error {
	community, err := json.Marshal(cardStrings(rec.Community))
	if err != nil {
		return err
	}
	winners, err := json.Marshal(rec.Winners)
	if err != nil {
		return err
	}
	actions, err := json.Marshal(rec.Actions)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO hand_histories (table_id, hand_number, blinds, community, pot, rake, dealer_pos, winners, actions)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.TableID, rec.HandNumber, rec.Blinds, string(community), rec.Pot, rec.Rake, rec.DealerPos,
		string(winners), string(actions))
	if err != nil {
		return err
	}
	handID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for _, p := range rec.Players {
		hole, err := json.Marshal(cardStrings(p.HoleCards[:]))
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO hand_history_players (hand_id, user_id, seat_pos, hole_cards, final_hand, profit, all_in_ev_profit)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			handID, p.UserID, p.Seat, string(hole), p.FinalHand, p.Profit, p.AllInEVProfit); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) IncrementStats(ctx context.Context, userID string, inc stats.Increment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO player_stats_cache (
			user_id, hands, vpip, pfr, three_bet, four_bet, c_bet, c_bet_faced, fold_to_c_bet,
			saw_flop, wtsd, won_at_showdown, agg_actions, passive_actions, profit, all_in_ev_profit, went_all_in
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			hands = hands + excluded.hands,
			vpip = vpip + excluded.vpip,
			pfr = pfr + excluded.pfr,
			three_bet = three_bet + excluded.three_bet,
			four_bet = four_bet + excluded.four_bet,
			c_bet = c_bet + excluded.c_bet,
			c_bet_faced = c_bet_faced + excluded.c_bet_faced,
			fold_to_c_bet = fold_to_c_bet + excluded.fold_to_c_bet,
			saw_flop = saw_flop + excluded.saw_flop,
			wtsd = wtsd + excluded.wtsd,
			won_at_showdown = won_at_showdown + excluded.won_at_showdown,
			agg_actions = agg_actions + excluded.agg_actions,
			passive_actions = passive_actions + excluded.passive_actions,
			profit = profit + excluded.profit,
			all_in_ev_profit = all_in_ev_profit + excluded.all_in_ev_profit,
			went_all_in = went_all_in + excluded.went_all_in`,
		userID, inc.Hands, inc.VPIP, inc.PFR, inc.ThreeBet, inc.FourBet, inc.CBet, inc.CBetFaced,
		inc.FoldToCBet, inc.SawFlop, inc.WTSD, inc.WonAtShowdown, inc.AggActions, inc.PassiveActions,
		inc.Profit, inc.AllInEVProfit, inc.WentAllIn)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
