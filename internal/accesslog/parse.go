package accesslog

// Access log is assumed to be nginx combined:
// $remote_addr - $remote_user [$time_local] "$request" $status $body_bytes_sent "$http_referer" "$http_user_agent"

// Header lists the CSV column names in field order.
var Header = []string{
	"remote_addr",
	"remote_user",
	"time_local",
	"request",
	"status",
	"body_bytes_sent",
	"http_referer",
	"http_user_agent",
}

// Record holds the eight fields of one combined-format line. Values are
// kept verbatim; status and size are not converted to numbers.
type Record struct {
	RemoteAddr    string
	RemoteUser    string
	TimeLocal     string
	Request       string
	Status        string
	BodyBytesSent string
	HTTPReferer   string
	HTTPUserAgent string
}

// Fields returns the record in Header order.
func (r Record) Fields() []string {
	return []string{
		r.RemoteAddr,
		r.RemoteUser,
		r.TimeLocal,
		r.Request,
		r.Status,
		r.BodyBytesSent,
		r.HTTPReferer,
		r.HTTPUserAgent,
	}
}

// delimiters is the order in which separators appear in a combined line.
// After the last one is found the scanner keeps matching it, so the closing
// quote of the user agent is counted as a twelfth position.
var delimiters = [...]byte{' ', ' ', '[', ']', '"', '"', ' ', ' ', '"', '"', '"'}

// boundaries is the number of positions a well-formed line produces,
// including the implicit start at 0.
const boundaries = len(delimiters) + 2

// Parse splits a combined-format line into a Record. The second return
// value is false when the line does not have exactly the expected
// delimiters; that is a normal outcome, not an error.
func Parse(line string) (Record, bool) {
	var pos [boundaries]int
	n := 1 // pos[0] = 0
	next := 0
	for i := 0; i < len(line); i++ {
		if line[i] != delimiters[next] {
			// Quotes only ever open or close a quoted field.
			if line[i] == '"' {
				return Record{}, false
			}
			continue
		}
		if n == boundaries {
			// one quote too many
			return Record{}, false
		}
		pos[n] = i
		n++
		if next < len(delimiters)-1 {
			next++
		}
	}
	if n != boundaries {
		return Record{}, false
	}
	// user and size are closed by a space that is not itself a delimiter.
	if line[pos[3]-1] != ' ' || line[pos[9]-1] != ' ' {
		return Record{}, false
	}

	var rec Record
	ok := true
	field := func(lo, hi int) string {
		if lo > hi {
			ok = false
			return ""
		}
		return line[lo:hi]
	}
	rec.RemoteAddr = field(pos[0], pos[1])
	rec.RemoteUser = field(pos[2]+1, pos[3]-1)
	rec.TimeLocal = field(pos[3]+1, pos[4])
	rec.Request = field(pos[5]+1, pos[6])
	rec.Status = field(pos[7]+1, pos[8])
	rec.BodyBytesSent = field(pos[8]+1, pos[9]-1)
	rec.HTTPReferer = field(pos[9]+1, pos[10])
	rec.HTTPUserAgent = field(pos[11]+1, pos[12])
	if !ok {
		return Record{}, false
	}
	return rec, true
}
