package section

const tocPrompt = `You will be given the first pages of an RFP document. Find the table of contents and list every section in it.

Rules:
1. One line per section.
2. Each line MUST be: <Section Number> | <Section Name> | <Starting Page Number> | <Page Range>
3. Page Range is written as [first,last].
4. If there is no table of contents, output nothing.

Example input:
TABLE OF CONTENTS
1	Minimum Qualifications	1
1.1	Offeror Minimum Qualifications	1
2	Contractor Requirements: Scope of Work	2
2.1	Summary Statement	2
3	Contractor Requirements: General	38
Attachment A.	Pre-Proposal Conference Response Form	99

Example output:
1 | Minimum Qualifications | 1 | [1,1]
1.1 | Offeror Minimum Qualifications | 1 | [1,1]
2 | Contractor Requirements: Scope of Work | 2 | [2,37]
2.1 | Summary Statement | 2 | [2,37]
3 | Contractor Requirements: General | 38 | [38,98]
Attachment A | Pre-Proposal Conference Response Form | 99 | [99,99]

All three "|" delimiters are required on every line.`

const validatorPrompt = `You will be given a table of contents and a candidate section heading from the same RFP. Decide whether the heading is a real section of the document.

Answer "yes" when:
1. The heading appears in the table of contents.
2. The heading is plausibly a subsection of an entry, e.g. 4.1 under 4, or any X.X.X numbering.

Answer "no" only when the heading is clearly noise: a title block, a solicitation number, a running header or other boilerplate. When unsure, answer "yes".

Respond with a JSON object with exactly two fields:
- "thought_process": what you saw in the table of contents and why you decided.
- "answer": "yes" or "no".

Example:
Table of Contents:
1 | Minimum Qualifications | 1 | [1,1]
2 | Contractor Requirements: Scope of Work | 2 | [2,30]
2.1 | Summary Statement | 2 | [2,2]

Section: Customer Service Center Solicitation #: OS/CSC-22-001-S

{"thought_process": "This is not in the table of contents and reads like a document header, not a section.", "answer": "no"}`

const pageNumberPrompt = `You will be given the text of a page number marker. Output only the page number itself.

Page 1 of 213 -> 1
Page xiii -> xiii
Page 7 -> 7
- 12 - -> 12`
