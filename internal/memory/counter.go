package memory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Counter is a multiset of tokens that remembers first-insertion order, so
// rankings break ties the same way every time, including after a JSON
// round-trip. The zero value is ready to use.
type Counter struct {
	order  []string
	counts map[string]int
}

// Add increments the count of each token by one.
func (c *Counter) Add(tokens ...string) {
	for _, t := range tokens {
		c.addN(t, 1)
	}
}

func (c *Counter) addN(token string, n int) {
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	if _, ok := c.counts[token]; !ok {
		c.order = append(c.order, token)
	}
	c.counts[token] += n
}

// Count returns the count of token.
func (c *Counter) Count(token string) int { return c.counts[token] }

// Len returns the number of distinct tokens.
func (c *Counter) Len() int { return len(c.order) }

// MostCommon returns up to n tokens by descending count. Equal counts keep
// first-insertion order.
func (c *Counter) MostCommon(n int) []string {
	if n <= 0 || len(c.order) == 0 {
		return []string{}
	}
	ranked := append([]string(nil), c.order...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return c.counts[ranked[i]] > c.counts[ranked[j]]
	})
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// Clone returns a deep copy.
func (c *Counter) Clone() Counter {
	out := Counter{
		order:  append([]string(nil), c.order...),
		counts: make(map[string]int, len(c.counts)),
	}
	for k, v := range c.counts {
		out.counts[k] = v
	}
	return out
}

// MarshalJSON writes the counter as an object in insertion order.
func (c Counter) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range c.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		fmt.Fprintf(&buf, "%d", c.counts[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of token counts, keeping key order.
func (c *Counter) UnmarshalJSON(b []byte) error {
	*c = Counter{}
	if string(bytes.TrimSpace(b)) == "null" {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("group interests must be an object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected key %v", keyTok)
		}
		var n json.Number
		if err := dec.Decode(&n); err != nil {
			return fmt.Errorf("count for %q: %w", key, err)
		}
		count, err := n.Int64()
		if err != nil {
			f, ferr := n.Float64()
			if ferr != nil {
				return fmt.Errorf("count for %q: %w", key, err)
			}
			count = int64(f)
		}
		c.addN(key, int(count))
	}
	_, err = dec.Token()
	return err
}
