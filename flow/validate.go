package flow

import (
	"fmt"
	"sort"

	"github.com/flowforge/wfcore/flow/registry"
	"github.com/flowforge/wfcore/flow/template"
)

// Validate runs every compile-time phase (§4.D) over doc and returns
// every diagnostic found, including WARN/INFO severities that Compile
// itself discards. Compile calls this internally and fails only on
// ERROR-severity diagnostics.
func Validate(doc *Document, reg *registry.Registry) []Diagnostic {
	return newValidator(doc, reg).run()
}

// validator runs the seven compile-time phases (§4.D) over a Document,
// accumulating diagnostics per phase rather than stopping at the first
// finding, so a single Compile call surfaces every problem at once.
type validator struct {
	doc      *Document
	reg      *registry.Registry
	diags    []Diagnostic
	nodeIdx  map[string]NodeSpec
	ifaceIdx map[string]registry.Interface
}

func newValidator(doc *Document, reg *registry.Registry) *validator {
	return &validator{doc: doc, reg: reg, nodeIdx: map[string]NodeSpec{}, ifaceIdx: map[string]registry.Interface{}}
}

func (v *validator) errorf(code, path, hint, format string, args ...interface{}) {
	v.diags = append(v.diags, Diagnostic{
		Severity: SeverityError,
		Code:     code,
		Path:     path,
		Message:  fmt.Sprintf(format, args...),
		Hint:     hint,
	})
}

func (v *validator) warnf(code, path, hint, format string, args ...interface{}) {
	v.diags = append(v.diags, Diagnostic{
		Severity: SeverityWarn,
		Code:     code,
		Path:     path,
		Message:  fmt.Sprintf(format, args...),
		Hint:     hint,
	})
}

// run executes all seven phases and returns the accumulated diagnostics.
// Later phases that depend on an earlier phase's invariants (e.g. phase 4
// needs every node id to be known) still run even if an earlier phase
// found errors, skipping only the specific checks that would panic or
// produce meaningless noise.
func (v *validator) run() []Diagnostic {
	v.phaseSchema()
	v.phaseNodeReferences()
	v.phaseInputs()
	v.phaseParamsAndOutputsTemplates()
	v.phaseReachability()
	v.phaseCycleBudget()
	v.phaseActionClosure()
	return v.diags
}

// phase 1: Schema — structural shape of the document itself.
func (v *validator) phaseSchema() {
	if v.doc.IRVersion == "" {
		v.errorf("MISSING_IR_VERSION", "ir_version", "set ir_version to a recognized version string", "ir_version is required")
	} else if !recognizedIRVersions[v.doc.IRVersion] {
		v.errorf("UNRECOGNIZED_IR_VERSION", "ir_version", "use a recognized ir_version", "ir_version %q is not recognized", v.doc.IRVersion)
	}

	if len(v.doc.Nodes) == 0 {
		v.errorf("EMPTY_GRAPH", "nodes", "", "document declares no nodes")
	}
	if v.doc.StartNode == "" {
		v.errorf("MISSING_START_NODE", "start_node", "set start_node to a declared node id", "start_node is required")
	}

	seen := map[string]bool{}
	for i, n := range v.doc.Nodes {
		path := fmt.Sprintf("nodes[%d]", i)
		if n.ID == "" {
			v.errorf("MISSING_NODE_ID", path, "", "node at index %d has no id", i)
			continue
		}
		if n.Type == "" {
			v.errorf("MISSING_NODE_TYPE", path+".type", "", "node %q has no type", n.ID)
		}
		if seen[n.ID] {
			v.errorf("DUPLICATE_NODE_ID", path+".id", "", "node id %q is declared more than once", n.ID)
			continue
		}
		seen[n.ID] = true
		v.nodeIdx[n.ID] = n
	}
}

// phase 2: Node references — every node's type is registered, every
// edge's endpoints and start_node name a declared node.
func (v *validator) phaseNodeReferences() {
	for id, n := range v.nodeIdx {
		if n.Type == "" {
			continue
		}
		_, iface, err := v.reg.Lookup(n.Type)
		if err != nil {
			v.errorf("UNKNOWN_NODE_TYPE", "nodes."+id+".type", "check the registered type name", "node %q references unregistered type %q", id, n.Type)
			continue
		}
		v.ifaceIdx[id] = iface
	}

	if v.doc.StartNode != "" {
		if _, ok := v.nodeIdx[v.doc.StartNode]; !ok {
			v.errorf("UNKNOWN_START_NODE", "start_node", "", "start_node %q is not a declared node", v.doc.StartNode)
		}
	}

	for i, e := range v.doc.Edges {
		path := fmt.Sprintf("edges[%d]", i)
		if _, ok := v.nodeIdx[e.From]; !ok {
			v.errorf("UNKNOWN_EDGE_FROM", path+".from", "", "edge references unknown source node %q", e.From)
		}
		if _, ok := v.nodeIdx[e.To]; !ok {
			v.errorf("UNKNOWN_EDGE_TO", path+".to", "", "edge references unknown target node %q", e.To)
		}
	}
}

// phase 3: Inputs — declared input types are recognized; a required
// input with a default is flagged, since the default applies whenever the
// input is not supplied and the required flag then has no effect.
func (v *validator) phaseInputs() {
	for name, spec := range v.doc.Inputs {
		path := "inputs." + name
		switch NormalizedType(spec.Type) {
		case "string", "integer", "number", "boolean", "object", "array":
		default:
			v.errorf("UNKNOWN_INPUT_TYPE", path+".type", "use str/int/float/bool/dict/list or their long forms", "input %q has unrecognized type %q", name, spec.Type)
		}
		if spec.Required && spec.Default != nil {
			v.warnf("REQUIRED_INPUT_HAS_DEFAULT", path, "drop required or drop default", "input %q is required but also declares a default, so the required flag never takes effect", name)
		}
	}
}

// phase 4: Params & outputs templates — every "${path}" root referenced
// anywhere in node params or the outputs block must name either a
// declared node id or a declared input (§4.C rule a/b), and when the
// root names a node id, that node must be an ancestor of the referencing
// node in the edge graph (§3 invariant 2, §4.C "Static analysis"). Being
// an ancestor means it reaches the referencing node along at least one
// edge path; whether it lies on every reachable path is not checked, and
// only the root segment is checked, not the rest of the path. The
// outputs block has no single referencing node
// position in the graph, so it is exempt from the predecessor check —
// evaluation happens after the whole run completes, so any known node is
// a valid reference there.
func (v *validator) phaseParamsAndOutputsTemplates() {
	knownRoots := map[string]bool{}
	for id := range v.nodeIdx {
		knownRoots[id] = true
	}
	for name := range v.doc.Inputs {
		knownRoots[name] = true
	}

	preds := v.computePredecessors()

	// checkRoot validates a single path's root. referencingID is "" for
	// paths that have no predecessor obligation (the outputs block).
	checkRoot := func(raw, pathPrefix, referencingID string) {
		root, _ := splitRoot(raw)
		if root == "" {
			return
		}
		if !knownRoots[root] {
			v.errorf("UNRESOLVED_TEMPLATE_ROOT", pathPrefix, "root must be a node id or a declared input name", "template %q in %s has unresolved root %q", raw, pathPrefix, root)
			return
		}
		if referencingID == "" || root == referencingID {
			return
		}
		if _, isNode := v.nodeIdx[root]; !isNode {
			return
		}
		if !preds[referencingID][root] {
			v.errorf("TEMPLATE_ROOT_NOT_A_PREDECESSOR", pathPrefix,
				"reference a node reachable only through an edge path into this node, or add that edge",
				"template %q in %s references node %q, which is not a compile-time predecessor of %q", raw, pathPrefix, root, referencingID)
		}
	}

	checkPaths := func(container interface{}, pathPrefix, referencingID string) {
		for _, raw := range template.ExtractPaths(container) {
			checkRoot(raw, pathPrefix, referencingID)
		}
	}

	ids := make([]string, 0, len(v.nodeIdx))
	for id := range v.nodeIdx {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		n := v.nodeIdx[id]
		if n.Params != nil {
			checkPaths(n.Params, "nodes."+id+".params", id)
		}

		spec, present, err := ParseBatchSpec(n.Params)
		if !present {
			continue
		}
		if err != nil {
			v.errorf("INVALID_BATCH_DIRECTIVE", "nodes."+id+".params.batch", "", "node %q declares an invalid batch directive: %s", id, err)
			continue
		}
		checkRoot(stripTemplateWrapper(spec.ArraySourcePath), "nodes."+id+".params.batch.array_source_path", id)
	}
	if v.doc.Outputs != nil {
		checkPaths(v.doc.Outputs, "outputs", "")
	}
}

// computePredecessors returns, per node id, its ancestor set in the edge
// graph: every node id from which some edge path leads to it (§4.E phase
// 6). An ancestor is not necessarily run before the node on every path.
// Computed via a reverse-adjacency BFS per node and used only by the
// static template-root check above.
func (v *validator) computePredecessors() map[string]map[string]bool {
	radj := map[string][]string{}
	for _, e := range v.doc.Edges {
		if _, ok := v.nodeIdx[e.From]; !ok {
			continue
		}
		if _, ok := v.nodeIdx[e.To]; !ok {
			continue
		}
		radj[e.To] = append(radj[e.To], e.From)
	}

	preds := make(map[string]map[string]bool, len(v.nodeIdx))
	for id := range v.nodeIdx {
		set := map[string]bool{}
		queue := append([]string{}, radj[id]...)
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			if set[cur] {
				continue
			}
			set[cur] = true
			queue = append(queue, radj[cur]...)
		}
		preds[id] = set
	}
	return preds
}

// splitRoot returns the first dotted/indexed segment of a raw path
// expression, e.g. "a.b[0].c" -> "a".
func splitRoot(raw string) (string, string) {
	for i := 0; i < len(raw); i++ {
		if raw[i] == '.' || raw[i] == '[' {
			return raw[:i], raw[i:]
		}
	}
	return raw, ""
}

// phase 5: Reachability — nodes unreachable from start_node by any edge
// path are dead code; flagged as a warning, not a compile failure.
func (v *validator) phaseReachability() {
	if v.doc.StartNode == "" {
		return
	}
	if _, ok := v.nodeIdx[v.doc.StartNode]; !ok {
		return
	}

	adj := v.adjacency()
	visited := map[string]bool{v.doc.StartNode: true}
	queue := []string{v.doc.StartNode}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, to := range adj[cur] {
			if !visited[to] {
				visited[to] = true
				queue = append(queue, to)
			}
		}
	}

	ids := make([]string, 0, len(v.nodeIdx))
	for id := range v.nodeIdx {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if !visited[id] {
			v.warnf("UNREACHABLE_NODE", "nodes."+id, "remove the node or wire an edge to it", "node %q is not reachable from start_node %q", id, v.doc.StartNode)
		}
	}
}

func (v *validator) adjacency() map[string][]string {
	adj := map[string][]string{}
	for _, e := range v.doc.Edges {
		if _, ok := v.nodeIdx[e.From]; !ok {
			continue
		}
		if _, ok := v.nodeIdx[e.To]; !ok {
			continue
		}
		adj[e.From] = append(adj[e.From], e.To)
	}
	return adj
}

// phase 6: Cycle budget — a cycle is legal because the engine bounds it
// with each node's max_visits (from its registry default, since the IR
// does not let a node instance override it; zero means the engine's
// default). A node on a cycle that declares a negative max_visits is an
// error.
func (v *validator) phaseCycleBudget() {
	adj := v.adjacency()
	cyclic := v.nodesOnCycle(adj)

	ids := make([]string, 0, len(cyclic))
	for id := range cyclic {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		iface := v.ifaceIdx[id]
		if iface.MaxVisits < 0 {
			v.errorf("INVALID_MAX_VISITS", "nodes."+id, "", "node %q on a cycle declares a negative max_visits", id)
		}
	}
}

// nodesOnCycle returns the set of node ids that participate in at least
// one cycle, via a straightforward DFS coloring.
func (v *validator) nodesOnCycle(adj map[string][]string) map[string]bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[string]int{}
	onCycle := map[string]bool{}

	var stack []string
	var dfs func(string)
	dfs = func(n string) {
		color[n] = gray
		stack = append(stack, n)
		for _, next := range adj[n] {
			switch color[next] {
			case white:
				dfs(next)
			case gray:
				for i := len(stack) - 1; i >= 0; i-- {
					onCycle[stack[i]] = true
					if stack[i] == next {
						break
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[n] = black
	}

	ids := make([]string, 0, len(v.nodeIdx))
	for id := range v.nodeIdx {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if color[id] == white {
			dfs(id)
		}
	}
	return onCycle
}

// phase 7: Action closure — every (node, action) pair wired by an edge
// must be unambiguous (at most one edge per pair), and every action a
// node's registered interface declares should have a way to be routed
// (missing routes are a warning: the node may simply never return that
// action at runtime).
func (v *validator) phaseActionClosure() {
	seen := map[string]map[string]bool{}
	wired := map[string]map[string]bool{}
	for _, e := range v.doc.Edges {
		if _, ok := v.nodeIdx[e.From]; !ok {
			continue
		}
		action := e.NormalizedAction()
		if seen[e.From] == nil {
			seen[e.From] = map[string]bool{}
		}
		if seen[e.From][action] {
			v.errorf("AMBIGUOUS_ROUTING", "edges", "remove the duplicate edge or give it a distinct action", "node %q has more than one outgoing edge for action %q", e.From, action)
		}
		seen[e.From][action] = true

		if wired[e.From] == nil {
			wired[e.From] = map[string]bool{}
		}
		wired[e.From][action] = true
	}

	ids := make([]string, 0, len(v.nodeIdx))
	for id := range v.nodeIdx {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		iface, ok := v.ifaceIdx[id]
		if !ok {
			continue
		}
		for _, action := range iface.Actions {
			if action == "default" {
				continue
			}
			if !wired[id][action] {
				v.warnf("UNWIRED_ACTION", "nodes."+id, "add an edge for this action or confirm the node never returns it", "node %q declares action %q with no outgoing edge", id, action)
			}
		}
	}
}
