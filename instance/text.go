package instance

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/sarchlab/meshplace/demand"
	"github.com/sarchlab/meshplace/noc/mesh"
)

type tokenizer struct {
	scanner *bufio.Scanner
	count   int
}

func newTokenizer(r io.Reader) *tokenizer {
	s := bufio.NewScanner(r)
	s.Split(bufio.ScanWords)

	return &tokenizer{scanner: s}
}

func (t *tokenizer) next(what string) (string, error) {
	if !t.scanner.Scan() {
		if err := t.scanner.Err(); err != nil {
			return "", fmt.Errorf("%w: %w", ErrUnreadable, err)
		}

		return "", unreadable("missing %s after token %d", what, t.count)
	}

	t.count++

	return t.scanner.Text(), nil
}

func (t *tokenizer) nextInt(what string) (int, error) {
	s, err := t.next(what)
	if err != nil {
		return 0, err
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, unreadable("%s %q at token %d is not an integer",
			what, s, t.count)
	}

	return v, nil
}

func (t *tokenizer) nextFloat(what string) (float64, error) {
	s, err := t.next(what)
	if err != nil {
		return 0, err
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, unreadable("%s %q at token %d is not a number",
			what, s, t.count)
	}

	return v, nil
}

// Parse reads an instance in the text format.
func Parse(r io.Reader) (*Instance, error) {
	t := newTokenizer(r)

	header := make([]float64, 2)
	for i, what := range []string{"link bandwidth", "link latency"} {
		v, err := t.nextFloat(what)
		if err != nil {
			return nil, err
		}

		header[i] = v
	}

	size := make([]int, 3)
	for i, what := range []string{"rows", "cols", "number of cores"} {
		v, err := t.nextInt(what)
		if err != nil {
			return nil, err
		}

		size[i] = v
	}

	rows, cols, numCores := size[0], size[1], size[2]
	if numCores <= 0 || numCores > rows*cols {
		return nil, unreadable("%d cores do not fit a %dx%d mesh",
			numCores, rows, cols)
	}

	positions := make([]mesh.Coordinate, numCores)
	for i := range positions {
		x, err := t.nextInt("x")
		if err != nil {
			return nil, err
		}

		y, err := t.nextInt("y")
		if err != nil {
			return nil, err
		}

		positions[i] = mesh.Coordinate{X: x, Y: y}
	}

	edges, err := parseEdges(t)
	if err != nil {
		return nil, err
	}

	return build(header[0], header[1], rows, cols, positions, edges)
}

func parseEdges(t *tokenizer) ([]demand.Edge, error) {
	var edges []demand.Edge

	for t.scanner.Scan() {
		t.count++

		from, err := strconv.Atoi(t.scanner.Text())
		if err != nil {
			return nil, unreadable("source core %q at token %d is not an integer",
				t.scanner.Text(), t.count)
		}

		to, err := t.nextInt("destination core")
		if err != nil {
			return nil, err
		}

		bw, err := t.nextInt("bandwidth")
		if err != nil {
			return nil, err
		}

		lat, err := t.nextFloat("latency")
		if err != nil {
			return nil, err
		}

		edges = append(edges, demand.Edge{
			From:      from - 1,
			To:        to - 1,
			Bandwidth: float64(bw),
			Latency:   lat,
		})
	}

	if err := t.scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	return edges, nil
}

// Write writes an instance in the text format with the cores at the given
// positions. The output can be loaded again to continue from a previous run.
func Write(w io.Writer, inst *Instance, positions []mesh.Coordinate) error {
	if len(positions) != inst.NumCores() {
		return fmt.Errorf("%d positions for %d cores",
			len(positions), inst.NumCores())
	}

	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "%s %s\n",
		formatNumber(inst.LinkBandwidth), formatNumber(inst.LinkLatency))
	fmt.Fprintf(bw, "%d %d %d\n", inst.Rows, inst.Cols, inst.NumCores())

	for _, p := range positions {
		fmt.Fprintf(bw, "%d %d\n", p.X, p.Y)
	}

	for _, e := range inst.Demand.Edges() {
		fmt.Fprintf(bw, "%d %d %s %s\n", e.From+1, e.To+1,
			formatNumber(e.Bandwidth), formatNumber(e.Latency))
	}

	return bw.Flush()
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
