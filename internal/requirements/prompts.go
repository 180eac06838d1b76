package requirements

const contentParsingPrompt = `You parse RFP section content into requirement lines.

Respond with a JSON object with two keys:
- "thought_process": your notes on the section headings and page numbers you found, and which pieces of content are actionable requirements.
- "content": the parsed content, one line per subsection. Each line is
  <section_name> | <page_number> | <section_number> | <verbatim_content> | <is_requirement>
  separated by "|". Split very long subsections across several lines.

<is_requirement> is "yes" when a responder would need to address the content in their proposal and "no" when it is purely informative.

Page numbers appear in the content as "Page Number: N" lines marking the end of page N. Content after such a line is on page N+1.

Copy content verbatim. Never add, change or remove text.

Example content:
2.3. Responsibilities and Tasks
This section discusses responsibilities and tasks of the contractor.
2.3.1. Fulfillment Requirement
CSRs shall answer email and telephone requests for document fulfillment.
Page Number: 5
2.3.2. Staffing Plan
The Contractor shall deliver a Staffing Plan.

Example response:
{"thought_process": "Sections 2.3 and 2.3.1 end on page 5, so 2.3.2 is on page 6. All of it must be addressed in a bid.",
 "content": "Responsibilities and Tasks | 5 | 2.3 | This section discusses responsibilities and tasks of the contractor. | yes\nFulfillment Requirement | 5 | 2.3.1 | CSRs shall answer email and telephone requests for document fulfillment. | yes\nStaffing Plan | 6 | 2.3.2 | The Contractor shall deliver a Staffing Plan. | yes"}`
