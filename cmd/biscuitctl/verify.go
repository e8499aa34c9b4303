package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/biscuit-auth/biscuit/cliutil"
	"github.com/biscuit-auth/biscuit/config"
	"github.com/biscuit-auth/biscuit/datalog"
	"github.com/biscuit-auth/biscuit/revocation"
)

var verifyFlags struct {
	fixture         string
	revocationStore string
	output          string
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run datalog.Verify against a JSON fixture",
	Long: `verify loads a JSON fixture describing an authority block,
attenuation blocks, a verifier and limits, runs datalog.Verify, and prints
the resulting verdict or error. It is the manual-testing counterpart to
bench: bench exercises the fixpoint evaluator's performance, verify
exercises its correctness against a hand-written scenario.

If --revocation-store points at a SQLite database, or a config file
configures a SQLite revocation backend, blocks are checked against it
before the fixpoint runs, exactly as a real verifier process would.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifyFlags.revocationStore, "revocation-store", "", "SQLite revocation store path consulted before evaluation")
	verifyCmd.Flags().StringVar(&verifyFlags.output, "output", "text", "output format: text or json")
}

// verifyResult is the JSON-serializable shape of a verify run.
type verifyResult struct {
	Outcome      string `json:"outcome"`
	MatchedQuery string `json:"matched_query,omitempty"`
	Error        string `json:"error,omitempty"`
}

func runVerify(cmd *cobra.Command, args []string) error {
	verifyFlags.fixture = args[0]

	data, err := os.ReadFile(verifyFlags.fixture)
	if err != nil {
		return fmt.Errorf("read fixture: %w", err)
	}

	var fx jsonFixture
	if err := json.Unmarshal(data, &fx); err != nil {
		return fmt.Errorf("parse fixture: %w", err)
	}

	cfg, err := loadConfigIfPresent(cfgFile)
	if err != nil {
		return err
	}

	limits, err := fx.toLimits(cfg)
	if err != nil {
		return fmt.Errorf("fixture limits: %w", err)
	}

	store, closeStore, err := openConfiguredRevocationStore(cfg)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}
	if store != nil {
		limits.CheckRevocationID = revocation.Checker(store, revocation.NewMetrics(nil))
	}

	verifier, err := fx.Verifier.toVerifier()
	if err != nil {
		return fmt.Errorf("fixture verifier: %w", err)
	}
	authority, err := fx.Authority.toBlock()
	if err != nil {
		return fmt.Errorf("fixture authority block: %w", err)
	}
	attenuation := make([]datalog.Block, len(fx.Attenuation))
	for i, b := range fx.Attenuation {
		blk, err := b.toBlock()
		if err != nil {
			return fmt.Errorf("fixture attenuation block %d: %w", i, err)
		}
		attenuation[i] = blk
	}

	metrics := datalog.NewMetrics(nil)
	verdict, verr := datalog.VerifyWithMetrics(cmd.Context(), verifier, authority, attenuation, limits, metrics)

	result := verifyResult{Outcome: "allow"}
	if verr != nil {
		result.Outcome = "deny"
		result.Error = verr.Error()
	} else {
		result.MatchedQuery = fmt.Sprintf("%+v", verdict.MatchedQuery)
	}

	formatter := cliutil.NewFormatter(cliutil.OutputFormat(verifyFlags.output))
	if verifyFlags.output == "json" {
		if err := formatter.FormatTo(os.Stdout, result); err != nil {
			return err
		}
	} else if verr != nil {
		fmt.Printf("result: %s\n", verr)
	} else {
		fmt.Printf("result: allow (%s)\n", result.MatchedQuery)
	}

	return withExitCode(verr)
}

// openConfiguredRevocationStore opens the revocation store named by
// --revocation-store, falling back to cfg.Revocation when the flag is
// unset and cfg configures a SQLite backend. It returns a nil store (and
// nil closer) when neither source names one, in which case Verify runs
// with no revocation checking.
func openConfiguredRevocationStore(cfg *config.Config) (revocation.Store, func(), error) {
	path := verifyFlags.revocationStore
	if path == "" && cfg != nil && cfg.Revocation.Backend == "sqlite" {
		path = cfg.Revocation.SQLitePath
	}
	if path == "" {
		return nil, nil, nil
	}

	store, err := revocation.NewSQLiteStore(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open revocation store: %w", err)
	}
	return store, func() { store.Close() }, nil
}

// jsonFixture is the on-disk shape the verify command decodes.
type jsonFixture struct {
	Verifier    jsonVerifier `json:"verifier"`
	Authority   jsonBlock    `json:"authority"`
	Attenuation []jsonBlock  `json:"attenuation"`
	Limits      *jsonLimits  `json:"limits"`
}

func (fx jsonFixture) toLimits(cfg *config.Config) (datalog.Limits, error) {
	if fx.Limits != nil {
		return fx.Limits.toLimits()
	}
	if cfg != nil {
		return cfg.DatalogLimits()
	}
	return datalog.DefaultLimits(), nil
}

type jsonLimits struct {
	MaxFacts        int    `json:"max_facts"`
	MaxIterations   int    `json:"max_iterations"`
	MaxTime         string `json:"max_time"`
	AllowRegexes    *bool  `json:"allow_regexes"`
	AllowBlockFacts *bool  `json:"allow_block_facts"`
}

func (jl jsonLimits) toLimits() (datalog.Limits, error) {
	limits := datalog.DefaultLimits()
	if jl.MaxFacts != 0 {
		limits.MaxFacts = jl.MaxFacts
	}
	if jl.MaxIterations != 0 {
		limits.MaxIterations = jl.MaxIterations
	}
	if jl.MaxTime != "" {
		d, err := time.ParseDuration(jl.MaxTime)
		if err != nil {
			return datalog.Limits{}, fmt.Errorf("max_time: %w", err)
		}
		limits.MaxTime = d
	}
	if jl.AllowRegexes != nil {
		limits.AllowRegexes = *jl.AllowRegexes
	}
	if jl.AllowBlockFacts != nil {
		limits.AllowBlockFacts = *jl.AllowBlockFacts
	}
	if err := limits.Validate(); err != nil {
		return datalog.Limits{}, err
	}
	return limits, nil
}

type jsonVerifier struct {
	Facts    []jsonPredicate `json:"facts"`
	Rules    []jsonRule      `json:"rules"`
	Checks   []jsonCheck     `json:"checks"`
	Policies []jsonPolicy    `json:"policies"`
}

func (jv jsonVerifier) toVerifier() (datalog.Verifier, error) {
	facts, err := toFacts(jv.Facts)
	if err != nil {
		return datalog.Verifier{}, err
	}
	rules, err := toRules(jv.Rules)
	if err != nil {
		return datalog.Verifier{}, err
	}
	checks, err := toChecks(jv.Checks)
	if err != nil {
		return datalog.Verifier{}, err
	}
	policies := make([]datalog.Policy, len(jv.Policies))
	for i, p := range jv.Policies {
		pol, err := p.toPolicy()
		if err != nil {
			return datalog.Verifier{}, err
		}
		policies[i] = pol
	}
	return datalog.Verifier{Facts: facts, Rules: rules, Checks: checks, Policies: policies}, nil
}

type jsonBlock struct {
	Facts              []jsonPredicate `json:"facts"`
	Rules              []jsonRule      `json:"rules"`
	Checks             []jsonCheck     `json:"checks"`
	RevocationID       string          `json:"revocation_id"`
	UniqueRevocationID string          `json:"unique_revocation_id"`
}

func (jb jsonBlock) toBlock() (datalog.Block, error) {
	facts, err := toFacts(jb.Facts)
	if err != nil {
		return datalog.Block{}, err
	}
	rules, err := toRules(jb.Rules)
	if err != nil {
		return datalog.Block{}, err
	}
	checks, err := toChecks(jb.Checks)
	if err != nil {
		return datalog.Block{}, err
	}
	revID, err := decodeHexOrEmpty(jb.RevocationID)
	if err != nil {
		return datalog.Block{}, fmt.Errorf("revocation_id: %w", err)
	}
	uniqueID, err := decodeHexOrEmpty(jb.UniqueRevocationID)
	if err != nil {
		return datalog.Block{}, fmt.Errorf("unique_revocation_id: %w", err)
	}
	return datalog.Block{
		Facts:              facts,
		Rules:              rules,
		Checks:             checks,
		RevocationID:       revID,
		UniqueRevocationID: uniqueID,
	}, nil
}

func decodeHexOrEmpty(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return hex.DecodeString(s)
}

type jsonPredicate struct {
	Name  string     `json:"name"`
	Terms []jsonTerm `json:"terms"`
}

func (jp jsonPredicate) toPredicate() (datalog.Predicate, error) {
	terms := make([]datalog.Term, len(jp.Terms))
	for i, t := range jp.Terms {
		term, err := t.toTerm()
		if err != nil {
			return datalog.Predicate{}, err
		}
		terms[i] = term
	}
	return datalog.Predicate{Name: jp.Name, Terms: terms}, nil
}

func toFacts(in []jsonPredicate) ([]datalog.Fact, error) {
	out := make([]datalog.Fact, len(in))
	for i, p := range in {
		pred, err := p.toPredicate()
		if err != nil {
			return nil, err
		}
		out[i] = pred
	}
	return out, nil
}

type jsonTerm struct {
	Type  string      `json:"type"`
	Value interface{} `json:"value"`
}

func (jt jsonTerm) toTerm() (datalog.Term, error) {
	switch jt.Type {
	case "symbol":
		s, ok := jt.Value.(string)
		if !ok {
			return datalog.Term{}, fmt.Errorf("symbol term requires a string value")
		}
		return datalog.Symbol(s), nil

	case "variable":
		s, ok := jt.Value.(string)
		if !ok {
			return datalog.Term{}, fmt.Errorf("variable term requires a string value")
		}
		return datalog.Variable(s), nil

	case "string":
		s, ok := jt.Value.(string)
		if !ok {
			return datalog.Term{}, fmt.Errorf("string term requires a string value")
		}
		return datalog.String(s), nil

	case "int":
		n, ok := jt.Value.(float64)
		if !ok {
			return datalog.Term{}, fmt.Errorf("int term requires a numeric value")
		}
		return datalog.Int64(int64(n)), nil

	case "bool":
		b, ok := jt.Value.(bool)
		if !ok {
			return datalog.Term{}, fmt.Errorf("bool term requires a boolean value")
		}
		return datalog.Bool(b), nil

	case "bytes":
		s, ok := jt.Value.(string)
		if !ok {
			return datalog.Term{}, fmt.Errorf("bytes term requires a hex-encoded string value")
		}
		b, err := hex.DecodeString(s)
		if err != nil {
			return datalog.Term{}, fmt.Errorf("bytes term: %w", err)
		}
		return datalog.Bytes(b), nil

	case "date":
		s, ok := jt.Value.(string)
		if !ok {
			return datalog.Term{}, fmt.Errorf("date term requires an RFC3339 string value")
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return datalog.Term{}, fmt.Errorf("date term: %w", err)
		}
		return datalog.Date(t), nil

	case "set":
		raw, ok := jt.Value.([]interface{})
		if !ok {
			return datalog.Term{}, fmt.Errorf("set term requires an array value")
		}
		elems := make([]datalog.Term, len(raw))
		for i, r := range raw {
			b, err := json.Marshal(r)
			if err != nil {
				return datalog.Term{}, err
			}
			var elem jsonTerm
			if err := json.Unmarshal(b, &elem); err != nil {
				return datalog.Term{}, err
			}
			term, err := elem.toTerm()
			if err != nil {
				return datalog.Term{}, err
			}
			elems[i] = term
		}
		return datalog.NewSet(elems...)

	default:
		return datalog.Term{}, fmt.Errorf("unknown term type %q", jt.Type)
	}
}

type jsonExpression struct {
	Value   *jsonTerm       `json:"value,omitempty"`
	Unary   string          `json:"unary,omitempty"`
	Operand *jsonExpression `json:"operand,omitempty"`
	Binary  string          `json:"binary,omitempty"`
	Left    *jsonExpression `json:"left,omitempty"`
	Right   *jsonExpression `json:"right,omitempty"`
}

var unaryOpNames = map[string]datalog.UnaryOp{
	"parens": datalog.OpParens,
	"negate": datalog.OpNegate,
	"length": datalog.OpLength,
}

var binaryOpNames = map[string]datalog.BinaryOp{
	"equal":             datalog.OpEqual,
	"less_than":         datalog.OpLessThan,
	"greater_than":      datalog.OpGreaterThan,
	"less_or_equal":     datalog.OpLessOrEqual,
	"greater_or_equal":  datalog.OpGreaterOrEqual,
	"add":               datalog.OpAdd,
	"sub":               datalog.OpSub,
	"mul":               datalog.OpMul,
	"div":               datalog.OpDiv,
	"prefix":            datalog.OpPrefix,
	"suffix":            datalog.OpSuffix,
	"regex":             datalog.OpRegex,
	"and":               datalog.OpAnd,
	"or":                datalog.OpOr,
	"contains":          datalog.OpContains,
	"intersection":      datalog.OpIntersection,
	"union":             datalog.OpUnion,
}

func (je jsonExpression) toExpression() (*datalog.Expression, error) {
	switch {
	case je.Value != nil:
		t, err := je.Value.toTerm()
		if err != nil {
			return nil, err
		}
		return datalog.Val(t), nil

	case je.Unary != "":
		op, ok := unaryOpNames[je.Unary]
		if !ok {
			return nil, fmt.Errorf("unknown unary operator %q", je.Unary)
		}
		if je.Operand == nil {
			return nil, fmt.Errorf("unary expression %q requires an operand", je.Unary)
		}
		operand, err := je.Operand.toExpression()
		if err != nil {
			return nil, err
		}
		return datalog.Unary(op, operand), nil

	case je.Binary != "":
		op, ok := binaryOpNames[je.Binary]
		if !ok {
			return nil, fmt.Errorf("unknown binary operator %q", je.Binary)
		}
		if je.Left == nil || je.Right == nil {
			return nil, fmt.Errorf("binary expression %q requires left and right", je.Binary)
		}
		left, err := je.Left.toExpression()
		if err != nil {
			return nil, err
		}
		right, err := je.Right.toExpression()
		if err != nil {
			return nil, err
		}
		return datalog.Binary(op, left, right), nil

	default:
		return nil, fmt.Errorf("expression must set one of value, unary or binary")
	}
}

func toGuards(in []jsonExpression) ([]*datalog.Expression, error) {
	out := make([]*datalog.Expression, len(in))
	for i, e := range in {
		expr, err := e.toExpression()
		if err != nil {
			return nil, err
		}
		out[i] = expr
	}
	return out, nil
}

type jsonRule struct {
	Head   jsonPredicate    `json:"head"`
	Body   []jsonPredicate  `json:"body"`
	Guards []jsonExpression `json:"guards"`
}

func toRules(in []jsonRule) ([]datalog.Rule, error) {
	out := make([]datalog.Rule, len(in))
	for i, r := range in {
		head, err := r.Head.toPredicate()
		if err != nil {
			return nil, err
		}
		body := make([]datalog.Predicate, len(r.Body))
		for j, p := range r.Body {
			pred, err := p.toPredicate()
			if err != nil {
				return nil, err
			}
			body[j] = pred
		}
		guards, err := toGuards(r.Guards)
		if err != nil {
			return nil, err
		}
		rule, err := datalog.NewRule(head, body, guards)
		if err != nil {
			return nil, err
		}
		out[i] = rule
	}
	return out, nil
}

type jsonQueryItem struct {
	Body   []jsonPredicate  `json:"body"`
	Guards []jsonExpression `json:"guards"`
}

func (jq jsonQueryItem) toQueryItem() (datalog.QueryItem, error) {
	body := make([]datalog.Predicate, len(jq.Body))
	for i, p := range jq.Body {
		pred, err := p.toPredicate()
		if err != nil {
			return datalog.QueryItem{}, err
		}
		body[i] = pred
	}
	guards, err := toGuards(jq.Guards)
	if err != nil {
		return datalog.QueryItem{}, err
	}
	return datalog.QueryItem{Body: body, Guards: guards}, nil
}

type jsonCheck struct {
	Queries []jsonQueryItem `json:"queries"`
}

func toChecks(in []jsonCheck) ([]datalog.Check, error) {
	out := make([]datalog.Check, len(in))
	for i, c := range in {
		queries := make([]datalog.QueryItem, len(c.Queries))
		for j, q := range c.Queries {
			qi, err := q.toQueryItem()
			if err != nil {
				return nil, err
			}
			queries[j] = qi
		}
		out[i] = datalog.Check{Queries: queries}
	}
	return out, nil
}

type jsonPolicy struct {
	Kind    string          `json:"kind"`
	Queries []jsonQueryItem `json:"queries"`
}

func (jp jsonPolicy) toPolicy() (datalog.Policy, error) {
	var kind datalog.PolicyKind
	switch jp.Kind {
	case "allow", "":
		kind = datalog.PolicyAllow
	case "deny":
		kind = datalog.PolicyDeny
	default:
		return datalog.Policy{}, fmt.Errorf("unknown policy kind %q", jp.Kind)
	}
	queries := make([]datalog.QueryItem, len(jp.Queries))
	for i, q := range jp.Queries {
		qi, err := q.toQueryItem()
		if err != nil {
			return datalog.Policy{}, err
		}
		queries[i] = qi
	}
	return datalog.Policy{Kind: kind, Queries: queries}, nil
}
