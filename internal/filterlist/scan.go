package filterlist

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	baserule "github.com/anfragment/zenfilter/internal/rule"
)

const (
	maxLineLength = 1 << 20
	// lineHeadLength is how much of an overlong line is kept for its parse error.
	lineHeadLength = 64
	// skipOther counts lines rejected with an error that carries no skip reason.
	skipOther = "other"
)

// Sink receives classified lines. Every error it returns should be a *baserule.ParseError.
type Sink interface {
	AddNetworkRule(line string) (baserule.Kind, error)
	AddHostsRule(line, host string) error
	AddCosmeticRule(line string) (baserule.Kind, error)
	AddScriptletRule(line string) (exception bool, err error)
}

// Stats count the lines of a list by outcome.
type Stats struct {
	Total              int
	Blank              int
	Comments           int
	Network            int
	NetworkExceptions  int
	Cosmetic           int
	CosmeticExceptions int
	Scriptlets         int
	// IgnoredHosts counts hosts-file lines naming only loopback or broadcast hosts.
	IgnoredHosts int
	Skipped      int
	SkipReasons  map[string]int
	Info         ListInfo
}

// Rules returns the number of rules and exceptions added.
func (s Stats) Rules() (rules, exceptions int) {
	return s.Network + s.Cosmetic + s.Scriptlets, s.NetworkExceptions + s.CosmeticExceptions
}

// Add accumulates the counts of other. Info is not merged.
func (s *Stats) Add(other Stats) {
	s.Total += other.Total
	s.Blank += other.Blank
	s.Comments += other.Comments
	s.Network += other.Network
	s.NetworkExceptions += other.NetworkExceptions
	s.Cosmetic += other.Cosmetic
	s.CosmeticExceptions += other.CosmeticExceptions
	s.Scriptlets += other.Scriptlets
	s.IgnoredHosts += other.IgnoredHosts
	s.Skipped += other.Skipped
	for reason, n := range other.SkipReasons {
		if s.SkipReasons == nil {
			s.SkipReasons = make(map[string]int)
		}
		s.SkipReasons[reason] += n
	}
}

func (s *Stats) skip(err error) {
	reason := skipOther
	var pe *baserule.ParseError
	if errors.As(err, &pe) {
		reason = pe.Reason
	}

	s.Skipped++
	if s.SkipReasons == nil {
		s.SkipReasons = make(map[string]int)
	}
	s.SkipReasons[reason]++
}

func (s *Stats) countKind(kind baserule.Kind) {
	switch kind {
	case baserule.KindNetworkBlock:
		s.Network++
	case baserule.KindNetworkException:
		s.NetworkExceptions++
	case baserule.KindCosmeticHide:
		s.Cosmetic++
	case baserule.KindCosmeticException:
		s.CosmeticExceptions++
	default:
		panic(fmt.Sprintf("unknown rule kind %d", kind))
	}
}

// Scan reads the list line by line and hands every line to the sink.
// Lines the sink rejects, and lines longer than maxLineLength, are counted and skipped.
// The returned error is only set when reading fails.
func Scan(reader io.Reader, sink Sink) (Stats, error) {
	var stats Stats
	br := bufio.NewReaderSize(reader, 64*1024)

	for {
		raw, tooLong, err := readLine(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("scan list: %w", err)
		}

		stats.Total++
		if tooLong {
			stats.skip(baserule.Malformed(string(raw), baserule.SkipLineTooLong,
				fmt.Errorf("line longer than %d bytes", maxLineLength)))
			continue
		}
		line := strings.TrimSpace(string(raw))

		switch Classify(line) {
		case LineBlank:
			stats.Blank++
		case LineComment:
			stats.Comments++
			if strings.HasPrefix(line, "!") {
				stats.Info.parseHeader(line)
			}
		case LineScriptlet:
			if _, err := sink.AddScriptletRule(line); err != nil {
				stats.skip(err)
				continue
			}
			stats.Scriptlets++
		case LineUnsupportedCosmetic:
			stats.skip(baserule.Unsupported(line, baserule.SkipUnsupportedSyntax, nil))
		case LineCosmetic:
			kind, err := sink.AddCosmeticRule(line)
			if err != nil {
				stats.skip(err)
				continue
			}
			stats.countKind(kind)
		case LineHosts:
			hosts := HostsEntries(line)
			if len(hosts) == 0 {
				stats.IgnoredHosts++
				continue
			}
			// A line naming several hosts counts once. It is skipped only when no host was added.
			var firstErr error
			added := false
			for _, host := range hosts {
				if err := sink.AddHostsRule(line, host); err != nil {
					if firstErr == nil {
						firstErr = err
					}
					continue
				}
				added = true
			}
			if added {
				stats.Network++
			} else {
				stats.skip(firstErr)
			}
		case LineNetwork:
			kind, err := sink.AddNetworkRule(line)
			if err != nil {
				stats.skip(err)
				continue
			}
			stats.countKind(kind)
		}
	}

	return stats, nil
}

// readLine returns the next line without its line terminator. A line longer than maxLineLength
// is consumed up to the next newline and reported as tooLong, with only its first
// lineHeadLength bytes returned. io.EOF is returned once no bytes are left.
func readLine(br *bufio.Reader) (line []byte, tooLong bool, err error) {
	var n int
	for {
		chunk, readErr := br.ReadSlice('\n')
		n += len(chunk)
		if !tooLong {
			line = append(line, chunk...)
			if len(bytes.TrimRight(line, "\r\n")) > maxLineLength {
				tooLong = true
				line = line[:lineHeadLength]
			}
		}

		switch {
		case readErr == bufio.ErrBufferFull:
			continue
		case readErr == io.EOF && n > 0:
		case readErr != nil:
			return nil, false, readErr
		}
		return bytes.TrimRight(line, "\r\n"), tooLong, nil
	}
}
