package models

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

var byteOrder = binary.LittleEndian

const binaryRecordVersion uint16 = 1

// writeString writes a uint16 length-prefixed UTF-8 string.
func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, byteOrder, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// readString reads a uint16 length-prefixed UTF-8 string.
func readString(r io.Reader) (string, error) {
	var length uint16
	if err := binary.Read(r, byteOrder, &length); err != nil {
		return "", err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeTime(w io.Writer, t time.Time) error {
	var ms int64
	if !t.IsZero() {
		ms = t.UnixMilli()
	}
	return binary.Write(w, byteOrder, ms)
}

func readTime(r io.Reader) (time.Time, error) {
	var ms int64
	if err := binary.Read(r, byteOrder, &ms); err != nil {
		return time.Time{}, err
	}
	if ms == 0 {
		return time.Time{}, nil
	}
	return time.UnixMilli(ms).UTC(), nil
}

func writeFields(w io.Writer, fields ...any) error {
	for _, f := range fields {
		if err := binary.Write(w, byteOrder, f); err != nil {
			return err
		}
	}
	return nil
}

func readFields(r io.Reader, fields ...any) error {
	for _, f := range fields {
		if err := binary.Read(r, byteOrder, f); err != nil {
			return err
		}
	}
	return nil
}

// WriteUserRecord writes a full user record in the compact binary format
// used by cold storage files.
func WriteUserRecord(w io.Writer, rec *UserRecord) error {
	if rec == nil {
		return fmt.Errorf("nil user record")
	}
	rec.Normalize()

	if err := binary.Write(w, byteOrder, binaryRecordVersion); err != nil {
		return err
	}
	if err := writeTrust(w, rec.Trust); err != nil {
		return err
	}
	if err := writeSkip(w, rec.Skip); err != nil {
		return err
	}
	if err := writeEarning(w, rec.Earning); err != nil {
		return err
	}
	if err := writeAggregate(w, rec.Aggregate); err != nil {
		return err
	}
	return writeSessionLog(w, rec.SessionLog)
}

// ReadUserRecord reads a record written by WriteUserRecord.
func ReadUserRecord(r io.Reader) (*UserRecord, error) {
	var version uint16
	if err := binary.Read(r, byteOrder, &version); err != nil {
		return nil, err
	}
	if version != binaryRecordVersion {
		return nil, fmt.Errorf("unsupported binary record version %d", version)
	}

	rec := &UserRecord{}
	var err error
	if rec.Trust, err = readTrust(r); err != nil {
		return nil, err
	}
	if rec.Skip, err = readSkip(r); err != nil {
		return nil, err
	}
	if rec.Earning, err = readEarning(r); err != nil {
		return nil, err
	}
	if rec.Aggregate, err = readAggregate(r); err != nil {
		return nil, err
	}
	if rec.SessionLog, err = readSessionLog(r); err != nil {
		return nil, err
	}
	return rec, nil
}

func writeTrust(w io.Writer, t *TrustProfile) error {
	if err := writeFields(w, t.HumanScore, t.ReputationScore, t.StakedAmount,
		int32(t.PeerVerifications), int32(t.BreakCount), int32(t.SessionCount),
		t.ContinuousActiveMs); err != nil {
		return err
	}
	if err := writeString(w, t.BehavioralSignature); err != nil {
		return err
	}
	if err := binary.Write(w, byteOrder, uint32(len(t.Samples))); err != nil {
		return err
	}
	for _, s := range t.Samples {
		if err := writeTime(w, s.At); err != nil {
			return err
		}
		if err := binary.Write(w, byteOrder, s.IntervalMs); err != nil {
			return err
		}
	}
	return nil
}

func readTrust(r io.Reader) (*TrustProfile, error) {
	t := &TrustProfile{}
	var peers, breaks, sessions int32
	if err := readFields(r, &t.HumanScore, &t.ReputationScore, &t.StakedAmount,
		&peers, &breaks, &sessions, &t.ContinuousActiveMs); err != nil {
		return nil, err
	}
	t.PeerVerifications = int(peers)
	t.BreakCount = int(breaks)
	t.SessionCount = int(sessions)

	var err error
	if t.BehavioralSignature, err = readString(r); err != nil {
		return nil, err
	}
	var count uint32
	if err := binary.Read(r, byteOrder, &count); err != nil {
		return nil, err
	}
	t.Samples = make([]IntervalSample, 0, count)
	for i := uint32(0); i < count; i++ {
		var s IntervalSample
		if s.At, err = readTime(r); err != nil {
			return nil, err
		}
		if err := binary.Read(r, byteOrder, &s.IntervalMs); err != nil {
			return nil, err
		}
		t.Samples = append(t.Samples, s)
	}
	return t, nil
}

func writeSkip(w io.Writer, s *SkipState) error {
	if err := writeFields(w, int32(s.DailySkips), int32(s.TotalSkips), s.SkipPenaltyMultiplier); err != nil {
		return err
	}
	if err := writeTime(w, s.LastSkipTime); err != nil {
		return err
	}
	return writeTime(w, s.LastSkipResetTime)
}

func readSkip(r io.Reader) (*SkipState, error) {
	s := &SkipState{}
	var daily, total int32
	if err := readFields(r, &daily, &total, &s.SkipPenaltyMultiplier); err != nil {
		return nil, err
	}
	s.DailySkips = int(daily)
	s.TotalSkips = int(total)
	var err error
	if s.LastSkipTime, err = readTime(r); err != nil {
		return nil, err
	}
	if s.LastSkipResetTime, err = readTime(r); err != nil {
		return nil, err
	}
	return s, nil
}

func writeEarning(w io.Writer, e *EarningState) error {
	if err := writeFields(w, e.CurrentRate, e.AverageRate, int32(e.RateSamples),
		e.SessionEarned, e.DailyEarnings, int32(e.TotalClaims)); err != nil {
		return err
	}
	return writeTime(w, e.LastClaimTime)
}

func readEarning(r io.Reader) (*EarningState, error) {
	e := &EarningState{}
	var samples, claims int32
	if err := readFields(r, &e.CurrentRate, &e.AverageRate, &samples,
		&e.SessionEarned, &e.DailyEarnings, &claims); err != nil {
		return nil, err
	}
	e.RateSamples = int(samples)
	e.TotalClaims = int(claims)
	var err error
	if e.LastClaimTime, err = readTime(r); err != nil {
		return nil, err
	}
	return e, nil
}

func writeAggregate(w io.Writer, a *HistoricalAggregate) error {
	if err := writeFields(w, a.LifetimeEarned, a.LifetimeMined,
		int64(a.ListeningTime), int32(a.TotalSessions), int64(a.LongestSession),
		int64(a.AverageSessionLength), int32(a.StreakDays)); err != nil {
		return err
	}
	if err := writeTime(w, a.JoinDate); err != nil {
		return err
	}
	if err := writeTime(w, a.LastActiveDate); err != nil {
		return err
	}

	if err := binary.Write(w, byteOrder, uint32(len(a.Weekly))); err != nil {
		return err
	}
	for key, b := range a.Weekly {
		if err := writeString(w, key); err != nil {
			return err
		}
		if err := writeFields(w, b.Earned, b.Mined, int64(b.ListeningTime), int32(b.Sessions)); err != nil {
			return err
		}
	}

	if err := binary.Write(w, byteOrder, uint32(len(a.Monthly))); err != nil {
		return err
	}
	for key, b := range a.Monthly {
		if err := writeString(w, key); err != nil {
			return err
		}
		if err := writeFields(w, b.Earned, b.Mined, int64(b.ListeningTime),
			int32(b.Sessions), b.AvgHumanScore, int32(b.ScoreSamples)); err != nil {
			return err
		}
	}

	return a.Tracks.WriteBinaryTo(w)
}

func readAggregate(r io.Reader) (*HistoricalAggregate, error) {
	a := NewHistoricalAggregate()
	var listening, longest, avg int64
	var sessions, streak int32
	if err := readFields(r, &a.LifetimeEarned, &a.LifetimeMined,
		&listening, &sessions, &longest, &avg, &streak); err != nil {
		return nil, err
	}
	a.ListeningTime = time.Duration(listening)
	a.TotalSessions = int(sessions)
	a.LongestSession = time.Duration(longest)
	a.AverageSessionLength = time.Duration(avg)
	a.StreakDays = int(streak)

	var err error
	if a.JoinDate, err = readTime(r); err != nil {
		return nil, err
	}
	if a.LastActiveDate, err = readTime(r); err != nil {
		return nil, err
	}

	var count uint32
	if err := binary.Read(r, byteOrder, &count); err != nil {
		return nil, err
	}
	for i := uint32(0); i < count; i++ {
		key, err := readString(r)
		if err != nil {
			return nil, err
		}
		b := &PeriodBucket{}
		var lt int64
		var n int32
		if err := readFields(r, &b.Earned, &b.Mined, &lt, &n); err != nil {
			return nil, err
		}
		b.ListeningTime = time.Duration(lt)
		b.Sessions = int(n)
		a.Weekly[key] = b
	}

	if err := binary.Read(r, byteOrder, &count); err != nil {
		return nil, err
	}
	for i := uint32(0); i < count; i++ {
		key, err := readString(r)
		if err != nil {
			return nil, err
		}
		b := &MonthlyBucket{}
		var lt int64
		var n, scored int32
		if err := readFields(r, &b.Earned, &b.Mined, &lt, &n, &b.AvgHumanScore, &scored); err != nil {
			return nil, err
		}
		b.ListeningTime = time.Duration(lt)
		b.Sessions = int(n)
		b.ScoreSamples = int(scored)
		a.Monthly[key] = b
	}

	if err := a.Tracks.ReadBinaryFrom(r); err != nil {
		return nil, err
	}
	return a, nil
}

func writeSessionLog(w io.Writer, log []*Session) error {
	if err := binary.Write(w, byteOrder, uint32(len(log))); err != nil {
		return err
	}
	for _, s := range log {
		if err := writeString(w, s.ID); err != nil {
			return err
		}
		if err := writeTime(w, s.StartTime); err != nil {
			return err
		}
		if err := writeTime(w, s.EndTime); err != nil {
			return err
		}
		premium := uint8(0)
		if s.IsPremium {
			premium = 1
		}
		if err := writeFields(w, int64(s.Duration), int32(s.TracksPlayed),
			s.ParaEarned, s.XfgMined, s.HumanScoreSnapshot, premium); err != nil {
			return err
		}
		if err := writeString(w, string(s.State)); err != nil {
			return err
		}
	}
	return nil
}

func readSessionLog(r io.Reader) ([]*Session, error) {
	var count uint32
	if err := binary.Read(r, byteOrder, &count); err != nil {
		return nil, err
	}
	log := make([]*Session, 0, count)
	for i := uint32(0); i < count; i++ {
		s := &Session{}
		var err error
		if s.ID, err = readString(r); err != nil {
			return nil, err
		}
		if s.StartTime, err = readTime(r); err != nil {
			return nil, err
		}
		if s.EndTime, err = readTime(r); err != nil {
			return nil, err
		}
		var duration int64
		var tracks int32
		var premium uint8
		if err := readFields(r, &duration, &tracks, &s.ParaEarned, &s.XfgMined,
			&s.HumanScoreSnapshot, &premium); err != nil {
			return nil, err
		}
		s.Duration = time.Duration(duration)
		s.TracksPlayed = int(tracks)
		s.IsPremium = premium == 1
		state, err := readString(r)
		if err != nil {
			return nil, err
		}
		s.State = SessionState(state)
		log = append(log, s)
	}
	return log, nil
}
