package lang

import (
	"log/slog"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/ajnin/pkg"
)

// stmtNode is the YAML shape of a statement. Exactly one field is set.
type stmtNode struct {
	Debug    *string       `yaml:"debug"`
	Clear    *string       `yaml:"clear"`
	If       *ifNode       `yaml:"if"`
	Rule     *ruleNode     `yaml:"rule"`
	Deps     *depsNode     `yaml:"deps"`
	Group    *groupNode    `yaml:"group"`
	List     *listNode     `yaml:"list"`
	Each     *eachNode     `yaml:"each"`
	Include  *includeNode  `yaml:"include"`
	Pipe     *[]stepNode   `yaml:"pipe"`
	Template *templateNode `yaml:"template"`
	Prolog   *string       `yaml:"prolog"`
	Epilog   *string       `yaml:"epilog"`
	File     *string       `yaml:"file"`
	Execute  *string       `yaml:"execute"`
	Meta     *string       `yaml:"meta"`
	Pool     *poolNode     `yaml:"pool"`
}

type ifNode struct {
	Ref   string     `yaml:"ref"`
	Empty bool       `yaml:"empty"`
	Then  []stmtNode `yaml:"then"`
	Elif  []elifNode `yaml:"elif"`
	Else  []stmtNode `yaml:"else"`
}

type elifNode struct {
	Ref   string     `yaml:"ref"`
	Empty bool       `yaml:"empty"`
	Then  []stmtNode `yaml:"then"`
}

type ruleNode struct {
	Names    []string     `yaml:"names"`
	Set      []assignNode `yaml:"set"`
	Implicit []string     `yaml:"implicit"`
	Order    []string     `yaml:"order"`
}

type depsNode struct {
	Implicit []string `yaml:"implicit"`
	Order    []string `yaml:"order"`
}

type groupNode struct {
	Lists   string       `yaml:"lists"`
	Collect *collectNode `yaml:"collect"`
	Do      []stmtNode   `yaml:"do"`
}

type collectNode struct {
	Op   string       `yaml:"op"`
	Set  []assignNode `yaml:"set"`
	Out  string       `yaml:"out"`
	Also bool         `yaml:"also"`
}

type listNode struct {
	ID string       `yaml:"id"`
	Do []listOpNode `yaml:"do"`
}

type listOpNode struct {
	Search *string  `yaml:"search"`
	Add    []string `yaml:"add"`
	Remove *string  `yaml:"remove"`
	Enum   []string `yaml:"enum"`
	Sort   *string  `yaml:"sort"`
	Unique *bool    `yaml:"unique"`
}

type eachNode struct {
	ID     string     `yaml:"id"`
	Search string     `yaml:"search"`
	Do     []stmtNode `yaml:"do"`
}

type includeNode struct {
	ID   string `yaml:"id"`
	Path string `yaml:"path"`
}

type templateNode struct {
	Name     string     `yaml:"name"`
	Param    string     `yaml:"param"`
	Detached bool       `yaml:"detached"`
	Do       []stepNode `yaml:"do"`
}

type poolNode struct {
	Name      string   `yaml:"name"`
	Artifacts []string `yaml:"artifacts"`
}

// stepNode is the YAML shape of a pipe step.
type stepNode struct {
	Stage     *string        `yaml:"stage"`
	From      []artifactNode `yaml:"from"`
	Op        *string        `yaml:"op"`
	Set       []assignNode   `yaml:"set"`
	Out       *string        `yaml:"out"`
	Also      []stepNode     `yaml:"also"`
	Apply     *string        `yaml:"apply"`
	Args      []string       `yaml:"args"`
	Propagate bool           `yaml:"propagate"`
}

// artifactNode is either a plain string, with a "~" (implicit) or "~~"
// (order-only) prefix, or a mapping.
type artifactNode struct {
	Path     string     `yaml:"path"`
	Pipe     []stepNode `yaml:"pipe"`
	Implicit bool       `yaml:"implicit"`
	Order    bool       `yaml:"order"`
}

func (a *artifactNode) UnmarshalYAML(unmarshal func(any) error) error {
	var v any
	if err := unmarshal(&v); err != nil {
		return err
	}

	if s, ok := v.(string); ok {
		switch {
		case strings.HasPrefix(s, "~~"):
			*a = artifactNode{Path: s[2:], Order: true}
		case strings.HasPrefix(s, "~"):
			*a = artifactNode{Path: s[1:], Implicit: true}
		default:
			*a = artifactNode{Path: s}
		}

		return nil
	}

	type plain artifactNode

	return unmarshal((*plain)(a))
}

type assignNode struct {
	Var    string  `yaml:"var"`
	Append bool    `yaml:"append"`
	Unset  bool    `yaml:"unset"`
	Item   *string `yaml:"item"`
	Arg    *string `yaml:"arg"`
	Raw    *string `yaml:"raw"`
	Str    *string `yaml:"str"`
}

// decodeScript decodes data into a statement tree.
func decodeScript(data []byte) (Block, error) {
	var nodes []stmtNode

	err := yaml.UnmarshalWithOptions(data, &nodes, yaml.DisallowUnknownField())
	if err != nil {
		return nil, ErrDecode.Wrap(err).With(
			slog.String("detail", yaml.FormatError(err, false, true)),
		)
	}

	return block(nodes)
}

// text converts escaped dollars to the placeholder byte.
func text(s string) string {
	return strings.ReplaceAll(s, `\$`, string(pkg.EscapedDollar))
}

func texts(ss []string) []string {
	if len(ss) == 0 {
		return nil
	}

	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = text(s)
	}

	return out
}

func shape(kind, detail string) error {
	return ErrStatementShape.With(
		slog.String("kind", kind),
		slog.String("detail", detail),
	)
}

func block(nodes []stmtNode) (Block, error) {
	if len(nodes) == 0 {
		return nil, nil
	}

	b := make(Block, 0, len(nodes))

	for _, n := range nodes {
		s, err := n.stmt()
		if err != nil {
			return nil, err
		}

		b = append(b, s)
	}

	return b, nil
}

func count(set ...bool) int {
	n := 0

	for _, ok := range set {
		if ok {
			n++
		}
	}

	return n
}

func (n stmtNode) stmt() (Stmt, error) {
	switch count(
		n.Debug != nil, n.Clear != nil, n.If != nil, n.Rule != nil,
		n.Deps != nil, n.Group != nil, n.List != nil, n.Each != nil,
		n.Include != nil, n.Pipe != nil, n.Template != nil, n.Prolog != nil,
		n.Epilog != nil, n.File != nil, n.Execute != nil, n.Meta != nil,
		n.Pool != nil,
	) {
	case 0:
		return nil, ErrUnknownStatement
	case 1:
	default:
		return nil, shape("statement", "more than one kind key")
	}

	switch {
	case n.Debug != nil:
		if *n.Debug == "" {
			return Debug{}, nil
		}

		id, err := ParseListID(*n.Debug)

		return Debug{List: id}, err

	case n.Clear != nil:
		id, err := ParseListID(*n.Clear)

		return Clear{List: id}, err

	case n.If != nil:
		return n.If.stmt()

	case n.Rule != nil:
		assigns, err := assignments(n.Rule.Set)
		if err != nil {
			return nil, err
		}

		return Rule{
			Names:     n.Rule.Names,
			Assigns:   assigns,
			Implicit:  texts(n.Rule.Implicit),
			OrderOnly: texts(n.Rule.Order),
		}, nil

	case n.Deps != nil:
		return Deps{
			Implicit:  texts(n.Deps.Implicit),
			OrderOnly: texts(n.Deps.Order),
		}, nil

	case n.Group != nil:
		return n.Group.stmt()

	case n.List != nil:
		return n.List.stmt()

	case n.Each != nil:
		id, err := ParseListID(n.Each.ID)
		if err != nil {
			return nil, err
		}

		body, err := block(n.Each.Do)
		if err != nil {
			return nil, err
		}

		return Each{ID: id, Pattern: text(n.Each.Search), Body: body}, nil

	case n.Include != nil:
		id, err := ParseListID(n.Include.ID)

		return Include{ID: id, Path: text(n.Include.Path)}, err

	case n.Pipe != nil:
		p, err := pipe(*n.Pipe)
		if err != nil {
			return nil, err
		}

		return *p, nil

	case n.Template != nil:
		return n.Template.stmt()

	case n.Prolog != nil:
		return Prolog{Text: text(*n.Prolog)}, nil

	case n.Epilog != nil:
		return Epilog{Text: text(*n.Epilog)}, nil

	case n.File != nil:
		return File{Path: text(*n.File)}, nil

	case n.Execute != nil:
		return Execute{Command: text(*n.Execute)}, nil

	case n.Meta != nil:
		return Meta{Path: text(*n.Meta)}, nil

	default:
		if n.Pool.Name == "" {
			return nil, shape("pool", "missing name")
		}

		return Pool{Name: text(n.Pool.Name), Artifacts: texts(n.Pool.Artifacts)}, nil
	}
}

func (n ifNode) stmt() (Stmt, error) {
	ref, err := ParseRef(n.Ref)
	if err != nil {
		return nil, err
	}

	then, err := block(n.Then)
	if err != nil {
		return nil, err
	}

	els, err := block(n.Else)
	if err != nil {
		return nil, err
	}

	// elif chains nest from the last one outward.
	for i := len(n.Elif) - 1; i >= 0; i-- {
		e := n.Elif[i]

		s, err := ifNode{Ref: e.Ref, Empty: e.Empty, Then: e.Then}.stmt()
		if err != nil {
			return nil, err
		}

		nested := s.(If)
		nested.Else = els
		els = Block{nested}
	}

	return If{Ref: ref, Empty: n.Empty, Then: then, Else: els}, nil
}

func (n groupNode) stmt() (Stmt, error) {
	var g Group

	for i := range len(n.Lists) {
		id, err := ParseListID(n.Lists[i : i+1])
		if err != nil {
			return nil, err
		}

		g.Lists = append(g.Lists, id)
	}

	if c := n.Collect; c != nil {
		if c.Out == "" {
			return nil, shape("collect", "missing out")
		}

		assigns, err := assignments(c.Set)
		if err != nil {
			return nil, err
		}

		g.Collect = &Collect{Rule: c.Op, Assigns: assigns, Out: text(c.Out), Also: c.Also}
	}

	body, err := block(n.Do)
	if err != nil {
		return nil, err
	}

	g.Body = body

	return g, nil
}

func (n listNode) stmt() (Stmt, error) {
	id, err := ParseListID(n.ID)
	if err != nil {
		return nil, err
	}

	l := List{ID: id}

	for _, op := range n.Do {
		o, err := op.listOp()
		if err != nil {
			return nil, err
		}

		l.Ops = append(l.Ops, o)
	}

	return l, nil
}

func (n listOpNode) listOp() (ListOp, error) {
	modify := n.Sort != nil || n.Unique != nil

	switch count(n.Search != nil, n.Add != nil, n.Remove != nil, n.Enum != nil, modify) {
	case 1:
	case 0:
		return nil, shape("list", "empty operation")
	default:
		return nil, shape("list", "more than one operation")
	}

	switch {
	case n.Search != nil:
		return Search{Pattern: text(*n.Search)}, nil

	case n.Add != nil:
		if len(n.Add) == 0 {
			return nil, shape("add", "missing item name")
		}

		return Add{Name: text(n.Add[0]), Args: texts(n.Add[1:])}, nil

	case n.Remove != nil:
		return Remove{Name: text(*n.Remove)}, nil

	case n.Enum != nil:
		return Enum{Names: texts(n.Enum)}, nil

	default:
		var m Modify

		if n.Sort != nil {
			m.Sort = true

			switch *n.Sort {
			case "asc", "":
			case "desc":
				m.Desc = true
			default:
				return nil, shape("sort", "order must be asc or desc")
			}
		}

		if n.Unique != nil {
			m.Unique = *n.Unique
		}

		return m, nil
	}
}

func (n templateNode) stmt() (Stmt, error) {
	if n.Name == "" {
		return nil, shape("template", "missing name")
	}

	param, err := ParseListID(n.Param)
	if err != nil {
		return nil, err
	}

	body, err := steps(n.Do)
	if err != nil {
		return nil, err
	}

	return Template{Name: n.Name, Param: param, Detached: n.Detached, Body: body}, nil
}

func pipe(nodes []stepNode) (*Pipe, error) {
	s, err := steps(nodes)
	if err != nil {
		return nil, err
	}

	return &Pipe{Steps: s}, nil
}

func steps(nodes []stepNode) ([]Step, error) {
	out := make([]Step, 0, len(nodes))

	for _, n := range nodes {
		s, err := n.step()
		if err != nil {
			return nil, err
		}

		out = append(out, s)
	}

	return out, nil
}

func (n stepNode) step() (Step, error) {
	switch count(n.Stage != nil, n.From != nil, n.Out != nil, n.Also != nil, n.Apply != nil) {
	case 1:
	case 0:
		return nil, shape("step", "no step kind")
	default:
		return nil, shape("step", "more than one step kind")
	}

	if n.Out == nil && (n.Op != nil || n.Set != nil) {
		return nil, shape("step", "op without out")
	}

	if n.Apply == nil && (n.Args != nil || n.Propagate) {
		return nil, shape("step", "args without apply")
	}

	switch {
	case n.Stage != nil:
		return Stage{Path: text(*n.Stage)}, nil

	case n.From != nil:
		arts := make([]Artifact, 0, len(n.From))

		for _, a := range n.From {
			art, err := a.artifact()
			if err != nil {
				return nil, err
			}

			arts = append(arts, art)
		}

		return From{Artifacts: arts}, nil

	case n.Out != nil:
		assigns, err := assignments(n.Set)
		if err != nil {
			return nil, err
		}

		op := Operation{Assigns: assigns, Out: text(*n.Out)}
		if n.Op != nil {
			op.Rule = *n.Op
		}

		return op, nil

	case n.Also != nil:
		s, err := steps(n.Also)
		if err != nil {
			return nil, err
		}

		return Also{Steps: s}, nil

	default:
		return Apply{Template: *n.Apply, Args: texts(n.Args), Propagate: n.Propagate}, nil
	}
}

func (n artifactNode) artifact() (Artifact, error) {
	var a Artifact

	switch {
	case n.Implicit && n.Order:
		return a, shape("artifact", "both implicit and order")
	case n.Implicit:
		a.Kind = DepImplicit
	case n.Order:
		a.Kind = DepOrderOnly
	}

	switch {
	case (n.Path == "") == (n.Pipe == nil):
		return a, shape("artifact", "need exactly one of path and pipe")
	case n.Pipe != nil:
		p, err := pipe(n.Pipe)
		if err != nil {
			return a, err
		}

		a.Pipe = p
	default:
		a.Path = text(n.Path)
	}

	return a, nil
}

func assignments(nodes []assignNode) ([]Assign, error) {
	if len(nodes) == 0 {
		return nil, nil
	}

	out := make([]Assign, 0, len(nodes))

	for _, n := range nodes {
		a, err := n.assign()
		if err != nil {
			return nil, err
		}

		out = append(out, a)
	}

	return out, nil
}

func (n assignNode) assign() (Assign, error) {
	a := Assign{Var: n.Var, Append: n.Append, Unset: n.Unset}

	if a.Var == "" {
		return a, shape("assign", "missing var")
	}

	values := count(n.Item != nil, n.Arg != nil, n.Raw != nil, n.Str != nil)

	switch {
	case n.Unset && values == 0 && !n.Append:
		return a, nil
	case n.Unset:
		return a, shape("assign", "unset with a value")
	case values != 1:
		return a, shape("assign", "need exactly one of item, arg, raw and str")
	}

	switch {
	case n.Item != nil:
		ref, err := ParseRef(*n.Item)
		if err != nil || ref.Arg >= 0 {
			return a, ErrInvalidRef.With(slog.String("item", *n.Item))
		}

		a.Value = Value{Kind: ValueItem, Ref: ref}

	case n.Arg != nil:
		ref, err := ParseRef(*n.Arg)
		if err != nil || ref.Arg < 0 {
			return a, ErrInvalidRef.With(slog.String("arg", *n.Arg))
		}

		a.Value = Value{Kind: ValueArg, Ref: ref}

	case n.Raw != nil:
		a.Value = Value{Kind: ValueRaw, Text: text(*n.Raw)}

	default:
		a.Value = Value{Kind: ValueStr, Text: text(*n.Str)}
	}

	return a, nil
}
