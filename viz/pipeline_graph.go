// ABOUTME: Pipeline graph generation with graphviz
// ABOUTME: Renders stage nodes with counts and revenue, plus clients by business type
package viz

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/harperreed/agencycrm/metrics"
	"github.com/harperreed/agencycrm/models"
)

var stageColors = map[string]string{
	StageLeads:     "lightgrey",
	StageSaved:     "lightyellow",
	StageClients:   "lightblue",
	StageCustomers: "lightgreen",
}

// GeneratePipelineGraph renders the Lead → Saved Lead → Client → Customer flow as DOT.
// When detailed is set, each active client hangs off the Clients stage grouped by business type.
func GeneratePipelineGraph(ctx context.Context, p models.Pipeline, detailed bool) (string, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz: %w", err)
	}
	defer func() { _ = gv.Close() }()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer func() { _ = graph.Close() }()

	graph.SetLabel("Agency Pipeline")
	graph.SetRankDir(cgraph.LRRank)

	stageNodes := make(map[string]*cgraph.Node)
	var prev *cgraph.Node
	for i, s := range Stages(p) {
		node, err := graph.CreateNodeByName(fmt.Sprintf("stage_%d", i))
		if err != nil {
			return "", fmt.Errorf("failed to create stage node: %w", err)
		}
		label := fmt.Sprintf("%s\n%d", s.Stage, s.Count)
		if s.Revenue > 0 {
			label += "\n" + metrics.FormatMoney(s.Revenue)
		}
		node.SetLabel(label)
		node.SetShape("box")
		node.SetStyle("filled")
		node.SetFillColor(stageColors[s.Stage])
		stageNodes[s.Stage] = node

		if prev != nil {
			if _, err := graph.CreateEdgeByName(fmt.Sprintf("flow_%d", i), prev, node); err != nil {
				return "", fmt.Errorf("failed to create edge: %w", err)
			}
		}
		prev = node
	}

	if detailed {
		if err := addClientNodes(graph, stageNodes[StageClients], p.Clients); err != nil {
			return "", err
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.XDOT, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}
	return buf.String(), nil
}

func addClientNodes(graph *cgraph.Graph, clientsStage *cgraph.Node, clients []models.Client) error {
	typeNodes := make(map[string]*cgraph.Node)
	for _, c := range clients {
		businessType := c.BusinessType
		if businessType == "" {
			businessType = models.DefaultBusinessType
		}

		typeNode, ok := typeNodes[businessType]
		if !ok {
			var err error
			typeNode, err = graph.CreateNodeByName("type_" + businessType)
			if err != nil {
				return fmt.Errorf("failed to create business type node: %w", err)
			}
			typeNode.SetLabel(businessType)
			typeNode.SetShape("ellipse")
			typeNodes[businessType] = typeNode

			edge, err := graph.CreateEdgeByName("type_"+businessType, clientsStage, typeNode)
			if err != nil {
				return fmt.Errorf("failed to create edge: %w", err)
			}
			edge.SetStyle("dashed")
		}

		node, err := graph.CreateNodeByName("client_" + c.ID)
		if err != nil {
			return fmt.Errorf("failed to create client node: %w", err)
		}
		label := fmt.Sprintf("%s\n%s", c.BusinessName, metrics.FormatMoney(c.PaymentCollected))
		if c.ProjectStage != "" {
			label += fmt.Sprintf("\n(%s)", c.ProjectStage)
		}
		node.SetLabel(label)
		node.SetShape("diamond")

		if _, err := graph.CreateEdgeByName("client_"+c.ID, typeNode, node); err != nil {
			return fmt.Errorf("failed to create edge: %w", err)
		}
	}
	return nil
}
