// ABOUTME: MCP server assembly
// ABOUTME: Registers every pipeline tool, resource, and prompt on one server
package handlers

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/agencycrm/store"
)

// NewServer builds an MCP server whose tools operate on st.
func NewServer(st *store.Store, version string) *mcp.Server {
	pipeline := NewPipelineHandlers(st)
	goals := NewGoalHandlers(st)
	tasks := NewTaskHandlers(st)
	resources := NewResourceHandlers(st)
	prompts := NewPromptHandlers(st)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "agencycrm",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_pipeline",
		Description: "List leads, saved leads, clients, and customers, optionally filtered by stage or business name",
	}, pipeline.ListPipeline)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_lead",
		Description: "Add a new lead to the pipeline",
	}, pipeline.AddLead)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "select_lead",
		Description: "Move a new lead to the saved leads list",
	}, pipeline.SelectLead)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "convert_lead",
		Description: "Convert a saved lead into an active client with project details",
	}, pipeline.ConvertLead)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "record_payment",
		Description: "Add a payment to a client's collected total; reports when the revenue goal is reached",
	}, pipeline.RecordPayment)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "complete_client",
		Description: "Mark a client's project completed, moving it to customers",
	}, pipeline.CompleteClient)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_goal",
		Description: "Create or edit the current revenue goal",
	}, goals.SetGoal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_metrics",
		Description: "Get revenue, conversion, completion, goal progress, and monthly revenue figures",
	}, goals.GetMetrics)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_tasks",
		Description: "List tasks filtered by status, priority, or client",
	}, tasks.ListTasks)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_task",
		Description: "Create a task, optionally attached to a client or lead",
	}, tasks.CreateTask)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_onboarding_tasks",
		Description: "Generate the onboarding checklist for a client from a service template",
	}, tasks.GenerateOnboardingTasks)

	for _, r := range Resources() {
		server.AddResource(r, resources.ReadResource)
	}
	for _, p := range Prompts() {
		server.AddPrompt(p, prompts.GetPrompt)
	}

	return server
}
