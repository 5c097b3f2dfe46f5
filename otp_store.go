package busauth

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	otpKeySegment      = "otp"
	otpRecordVersionV1 = 1
)

var (
	errOTPRecordNotFound   = errors.New("otp record not found")
	errOTPRedisUnavailable = errors.New("otp redis unavailable")
	errOTPRecordMalformed  = errors.New("otp record malformed")
)

// otpRecord is the Redis-side shape of a one-time code. ExpiresAt is the
// logical deadline; the Redis key outlives it (RetainTTL) so an expired code
// stays distinguishable from one that was never issued.
type otpRecord struct {
	Subject   Subject
	CreatedAt int64
	ExpiresAt int64
}

func (r *otpRecord) expired(now time.Time) bool {
	return now.Unix() > r.ExpiresAt
}

type otpStore struct {
	redis     *redis.Client
	prefix    string
	ttl       time.Duration
	retainTTL time.Duration
}

func newOTPStore(redisClient *redis.Client, cfg OTPConfig) *otpStore {
	return &otpStore{
		redis:     redisClient,
		prefix:    cfg.RedisPrefix,
		ttl:       cfg.TTL,
		retainTTL: cfg.RetainTTL,
	}
}

func (s *otpStore) key(code string) string {
	return s.prefix + ":" + otpKeySegment + ":" + code
}

// Create stores a fresh record under code. An existing record for the same
// code is overwritten.
func (s *otpStore) Create(ctx context.Context, subject Subject, code string) error {
	now := time.Now()
	record := &otpRecord{
		Subject:   subject,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
	}

	encoded, err := encodeOTPRecord(record)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(code), encoded, s.retainTTL).Err(); err != nil {
		return fmt.Errorf("%w: %v", errOTPRedisUnavailable, err)
	}

	return nil
}

// FindLive returns the record for code when it exists and has not passed its
// logical deadline. Missing and expired both report errOTPRecordNotFound.
func (s *otpStore) FindLive(ctx context.Context, code string) (*otpRecord, error) {
	record, err := s.FindAny(ctx, code)
	if err != nil {
		return nil, err
	}

	if record.expired(time.Now()) {
		return nil, errOTPRecordNotFound
	}

	return record, nil
}

// FindAny returns the record for code regardless of logical expiry.
func (s *otpStore) FindAny(ctx context.Context, code string) (*otpRecord, error) {
	data, err := s.redis.Get(ctx, s.key(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errOTPRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errOTPRedisUnavailable, err)
	}

	return decodeOTPRecord(data)
}

// Delete removes the record for code. Deleting an absent code is not an
// error.
func (s *otpStore) Delete(ctx context.Context, code string) error {
	if err := s.redis.Del(ctx, s.key(code)).Err(); err != nil {
		return fmt.Errorf("%w: %v", errOTPRedisUnavailable, err)
	}
	return nil
}

func encodeOTPRecord(record *otpRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(otpRecordVersionV1)
	buf.WriteByte(byte(record.Subject.Kind))

	if err := binary.Write(&buf, binary.BigEndian, record.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	if len(record.Subject.ID) > 65535 {
		return nil, errors.New("otp record subject id too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.Subject.ID))); err != nil {
		return nil, err
	}
	buf.WriteString(record.Subject.ID)

	return buf.Bytes(), nil
}

func decodeOTPRecord(data []byte) (*otpRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, errOTPRecordMalformed
	}
	if version != otpRecordVersionV1 {
		return nil, errors.New("invalid otp record version")
	}

	kind, err := reader.ReadByte()
	if err != nil {
		return nil, errOTPRecordMalformed
	}
	switch SubjectKind(kind) {
	case SubjectPending, SubjectCredential:
	default:
		return nil, errOTPRecordMalformed
	}

	record := &otpRecord{
		Subject: Subject{Kind: SubjectKind(kind)},
	}

	if err := binary.Read(reader, binary.BigEndian, &record.CreatedAt); err != nil {
		return nil, errOTPRecordMalformed
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, errOTPRecordMalformed
	}

	var subjectIDLen uint16
	if err := binary.Read(reader, binary.BigEndian, &subjectIDLen); err != nil {
		return nil, errOTPRecordMalformed
	}

	subjectID := make([]byte, subjectIDLen)
	if _, err := io.ReadFull(reader, subjectID); err != nil {
		return nil, errOTPRecordMalformed
	}
	record.Subject.ID = string(subjectID)

	return record, nil
}
