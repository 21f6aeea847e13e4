package sqlinline

const QInsertCacheJob = `--sql 4e90f8c6-9cd1-405b-aae6-ad13e87e0c49
insert into cache_jobs(
  id,
  job_id,
  collection_id,
  collection_name,
  status,
  total_images,
  target_folder_id,
  target_folder_path,
  target_width,
  target_height,
  target_quality,
  target_format,
  thumbnail_size,
  force_regenerate,
  can_resume,
  created_at,
  updated_at
) values (
  $1::uuid,
  $2::text,
  $3::text,
  $4::text,
  'pending',
  $5::int,
  $6::text,
  $7::text,
  $8::int,
  $9::int,
  $10::int,
  $11::text,
  $12::int,
  $13::boolean,
  true,
  now(),
  now()
)
on conflict (job_id) do nothing
returning created_at, updated_at;
`

const QSelectCacheJob = `--sql 0fcf1551-7382-4e5a-ad31-f9ebf0099394
select id::text, job_id, collection_id, collection_name, status,
       total_images, completed_images, failed_images, skipped_images,
       processed_image_ids, failed_image_ids, item_errors,
       target_folder_id, target_folder_path, target_width, target_height, target_quality, target_format,
       thumbnail_size, force_regenerate, total_size_bytes,
       started_at, completed_at, last_progress_at, error_message, can_resume, created_at, updated_at
from cache_jobs
where job_id = $1::text
limit 1;
`

const QClaimCacheJob = `--sql 1f541f7b-167c-4097-b428-3929924d777b
update cache_jobs
set status = 'running',
    started_at = coalesce(started_at, now()),
    last_progress_at = now(),
    error_message = '',
    updated_at = now()
where job_id = $1::text
  and (status in ('pending', 'paused') or (status = 'failed' and can_resume))
returning id::text, job_id, collection_id, collection_name, status,
       total_images, completed_images, failed_images, skipped_images,
       processed_image_ids, failed_image_ids, item_errors,
       target_folder_id, target_folder_path, target_width, target_height, target_quality, target_format,
       thumbnail_size, force_regenerate, total_size_bytes,
       started_at, completed_at, last_progress_at, error_message, can_resume, created_at, updated_at;
`

const QClaimNextCacheJob = `--sql 3bac50ae-7ccf-4ee4-a5f5-37c6458c7fef
with next_job as (
    select id
    from cache_jobs
    where status = 'pending'
    order by created_at asc
    for update skip locked
    limit 1
)
update cache_jobs
set status = 'running',
    started_at = coalesce(started_at, now()),
    last_progress_at = now(),
    error_message = '',
    updated_at = now()
where id in (select id from next_job)
returning id::text, job_id, collection_id, collection_name, status,
       total_images, completed_images, failed_images, skipped_images,
       processed_image_ids, failed_image_ids, item_errors,
       target_folder_id, target_folder_path, target_width, target_height, target_quality, target_format,
       thumbnail_size, force_regenerate, total_size_bytes,
       started_at, completed_at, last_progress_at, error_message, can_resume, created_at, updated_at;
`

const QSetCacheJobTotal = `--sql 7f7351dc-6c94-458f-8d94-85c38b13928b
update cache_jobs
set total_images = greatest($2::int, completed_images + failed_images + skipped_images),
    updated_at = now()
where job_id = $1::text;
`

const QSetCacheJobTargetFolder = `--sql e4011584-ac70-49de-bfae-2309543fb3f2
update cache_jobs
set target_folder_id = $2::text,
    target_folder_path = $3::text,
    updated_at = now()
where job_id = $1::text
  and target_folder_id = '';
`

const QCacheJobHasImage = `--sql 57907564-5c8e-4f6d-81bc-bb907b4fcf4c
select $2::text = any(processed_image_ids) or $2::text = any(failed_image_ids)
from cache_jobs
where job_id = $1::text;
`

const QIncrementCacheJobCompleted = `--sql 46a538d1-eee8-4e33-a491-019bdcbb4791
update cache_jobs
set completed_images = completed_images + 1,
    processed_image_ids = array_append(processed_image_ids, $2::text),
    total_size_bytes = total_size_bytes + $3::bigint,
    last_progress_at = now(),
    updated_at = now()
where job_id = $1::text
  and not ($2::text = any(processed_image_ids))
  and not ($2::text = any(failed_image_ids))
  and completed_images + failed_images + skipped_images < total_images;
`

const QIncrementCacheJobFailed = `--sql 6b0ee533-a56f-4d1d-94bc-2c9c70fb1108
update cache_jobs
set failed_images = failed_images + 1,
    failed_image_ids = array_append(failed_image_ids, $2::text),
    item_errors = item_errors || jsonb_build_object($2::text, $3::text),
    last_progress_at = now(),
    updated_at = now()
where job_id = $1::text
  and not ($2::text = any(processed_image_ids))
  and not ($2::text = any(failed_image_ids))
  and completed_images + failed_images + skipped_images < total_images;
`

const QIncrementCacheJobSkipped = `--sql 74193574-f17e-42d0-a7a2-cb77d257fe28
update cache_jobs
set skipped_images = skipped_images + 1,
    processed_image_ids = array_append(processed_image_ids, $2::text),
    last_progress_at = now(),
    updated_at = now()
where job_id = $1::text
  and not ($2::text = any(processed_image_ids))
  and not ($2::text = any(failed_image_ids))
  and completed_images + failed_images + skipped_images < total_images;
`

const QUpdateCacheJobStatus = `--sql cb24654e-1ca3-433d-a739-5565cc54ceab
update cache_jobs
set status = $2::text,
    error_message = $3::text,
    can_resume = $4::boolean,
    completed_at = case
        when $2::text = 'completed' or ($2::text = 'failed' and not $4::boolean) then now()
        else completed_at
    end,
    updated_at = now()
where job_id = $1::text
  and status = any($5::text[])
  and (status <> 'failed' or can_resume);
`

const QListIncompleteCacheJobs = `--sql 29a5c172-7275-47e3-a87b-81d2990fdcd4
select id::text, job_id, collection_id, collection_name, status,
       total_images, completed_images, failed_images, skipped_images,
       processed_image_ids, failed_image_ids, item_errors,
       target_folder_id, target_folder_path, target_width, target_height, target_quality, target_format,
       thumbnail_size, force_regenerate, total_size_bytes,
       started_at, completed_at, last_progress_at, error_message, can_resume, created_at, updated_at
from cache_jobs
where status in ('pending', 'running', 'paused')
   or (status = 'failed' and can_resume)
order by created_at asc;
`

const QListPausedCacheJobs = `--sql bce1b50f-d0ac-4209-a74b-4f8009a8fba2
select id::text, job_id, collection_id, collection_name, status,
       total_images, completed_images, failed_images, skipped_images,
       processed_image_ids, failed_image_ids, item_errors,
       target_folder_id, target_folder_path, target_width, target_height, target_quality, target_format,
       thumbnail_size, force_regenerate, total_size_bytes,
       started_at, completed_at, last_progress_at, error_message, can_resume, created_at, updated_at
from cache_jobs
where status = 'paused'
order by updated_at asc;
`

const QListRecentCacheJobs = `--sql 3ed40880-5ac6-403a-88c6-a72ace18fc56
select id::text, job_id, collection_id, collection_name, status,
       total_images, completed_images, failed_images, skipped_images,
       processed_image_ids, failed_image_ids, item_errors,
       target_folder_id, target_folder_path, target_width, target_height, target_quality, target_format,
       thumbnail_size, force_regenerate, total_size_bytes,
       started_at, completed_at, last_progress_at, error_message, can_resume, created_at, updated_at
from cache_jobs
order by created_at desc
limit $1::int;
`

const QListStaleCacheJobs = `--sql 167351a4-adc5-45de-8419-87dbe3b8c58a
select id::text, job_id, collection_id, collection_name, status,
       total_images, completed_images, failed_images, skipped_images,
       processed_image_ids, failed_image_ids, item_errors,
       target_folder_id, target_folder_path, target_width, target_height, target_quality, target_format,
       thumbnail_size, force_regenerate, total_size_bytes,
       started_at, completed_at, last_progress_at, error_message, can_resume, created_at, updated_at
from cache_jobs
where status = 'running'
  and coalesce(last_progress_at, started_at, updated_at) < $1::timestamptz
order by last_progress_at asc nulls first;
`

const QDeleteOldCacheJobs = `--sql f5ae1c88-9c5c-4561-8ceb-1bd2e5ab01f9
delete from cache_jobs
where (status = 'completed' or (status = 'failed' and not can_resume))
  and coalesce(completed_at, updated_at) < $1::timestamptz;
`
